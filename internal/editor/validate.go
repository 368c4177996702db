package editor

import (
	"errors"
	"reflect"
	"strings"

	"product-panel/internal/model"

	"github.com/go-playground/validator/v10"
)

// draftForm holds the submitted fields that carry validation rules.
type draftForm struct {
	Title          string            `json:"title" validate:"required"`
	Category       string            `json:"category" validate:"required"`
	Specifications map[string]string `json:"specifications" validate:"dive,keys,notblank,endkeys"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateDraft checks the required fields of candidate and reports failures
// as a model.ValidationError keyed by field name.
func validateDraft(v *validator.Validate, candidate model.Product) error {
	err := v.Struct(draftForm{
		Title:          candidate.Title,
		Category:       candidate.Category,
		Specifications: candidate.Specifications,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if strings.HasPrefix(name, "specifications") {
			fields["specifications"] = "specification names are required"
			continue
		}
		fields[name] = name + " is required"
	}
	return &model.ValidationError{Fields: fields}
}
