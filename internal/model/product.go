package model

import (
	"maps"
	"time"
)

// Product represents a single entry in the product catalogue.
// A product with an empty ID is a draft that only lives in the editor.
type Product struct {
	ID             string            `json:"id" yaml:"id"`
	Title          string            `json:"title" yaml:"title"`
	Category       string            `json:"category" yaml:"category"`
	Description    string            `json:"description,omitempty" yaml:"description"`
	Dimensions     string            `json:"dimensions,omitempty" yaml:"dimensions"`
	Image          string            `json:"image,omitempty" yaml:"-"`
	Specifications map[string]string `json:"specifications,omitempty" yaml:"specifications"`
	CreatedAt      time.Time         `json:"createdAt" yaml:"-"`
	UpdatedAt      time.Time         `json:"updatedAt" yaml:"-"`
}

// IsDraft reports whether the product has not been saved yet.
func (p Product) IsDraft() bool {
	return p.ID == ""
}

// Clone returns a copy of the product that shares no mutable state with p.
func (p Product) Clone() Product {
	c := p
	if p.Specifications != nil {
		c.Specifications = maps.Clone(p.Specifications)
	}
	return c
}

// Field names accepted by the editor.
const (
	FieldTitle       = "title"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldDimensions  = "dimensions"
)

// SetField assigns a single editable text field.
// It returns ErrUnknownField for anything other than the editable text fields.
func (p *Product) SetField(name, value string) error {
	switch name {
	case FieldTitle:
		p.Title = value
	case FieldCategory:
		p.Category = value
	case FieldDescription:
		p.Description = value
	case FieldDimensions:
		p.Dimensions = value
	default:
		return ErrUnknownField
	}
	return nil
}
