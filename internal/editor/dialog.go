// Package editor implements the modal product editor.
//
// A Dialog owns a draft copy of a product from the moment it is opened until
// it is submitted or closed. Like the catalog store it is driven from the
// panel's event loop; image reads run elsewhere through an Executor and are
// applied back as follow-up events.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"product-panel/internal/catalog"
	"product-panel/internal/export"
	"product-panel/internal/imageload"
	"product-panel/internal/model"
	"product-panel/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ErrSessionClosed is the cancellation cause of work tied to a dialog
// session that has since been closed.
var ErrSessionClosed = errors.New("editor dialog closed")

// Executor runs suspended work and applies its result as a later event.
type Executor interface {
	Submit(ctx context.Context, work func(ctx context.Context) (any, error), apply func(any, error)) error
}

// Sink receives the dialog's save and cancel intents.
type Sink interface {
	Save(candidate model.Product) (model.Product, error)
	CancelEdit()
}

const (
	msgInvalid         = "Title and category are required"
	msgImageFailed     = "Failed to load the image"
	msgPreviewExported = "Preview exported successfully!"
	msgPreviewFailed   = "Failed to export the preview"
)

// Dialog is the editor state machine: closed, creating or editing.
type Dialog struct {
	mode       catalog.Mode
	draft      model.Product
	originalID string

	// session identifies one open/close cycle; imageSeq orders image
	// selections within it so only the latest one lands.
	session      uint64
	imageSeq     uint64
	imagePending bool
	// imageCancel stops the read behind the pending image selection.
	imageCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelCauseFunc

	sink     Sink
	images   imageload.Loader
	exec     Executor
	exporter export.Exporter
	notifier notify.Notifier
	validate *validator.Validate
	logger   zerolog.Logger
}

// New creates a closed dialog.
func New(sink Sink, images imageload.Loader, exec Executor, exporter export.Exporter, notifier notify.Notifier, logger zerolog.Logger) *Dialog {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(ErrSessionClosed)

	return &Dialog{
		mode:     catalog.ModeClosed,
		ctx:      ctx,
		cancel:   cancel,
		sink:     sink,
		images:   images,
		exec:     exec,
		exporter: exporter,
		notifier: notifier,
		validate: newValidator(),
		logger:   logger.With().Str("component", "editor").Logger(),
	}
}

// Initialize opens a fresh session. A nil product starts a blank draft for a
// new product; otherwise the draft is a copy of product. Any session already
// open is discarded first.
func (d *Dialog) Initialize(product *model.Product) {
	if d.IsOpen() {
		d.close()
	}

	d.session++
	d.imageSeq = 0
	d.imagePending = false
	d.ctx, d.cancel = context.WithCancelCause(context.Background())

	if product == nil {
		d.mode = catalog.ModeCreating
		d.originalID = ""
		d.draft = model.Product{Specifications: map[string]string{}}
	} else {
		d.mode = catalog.ModeEditing
		d.originalID = product.ID
		d.draft = product.Clone()
		if d.draft.Specifications == nil {
			d.draft.Specifications = map[string]string{}
		}
	}

	d.logger.Debug().
		Str("mode", string(d.mode)).
		Str("product_id", d.originalID).
		Uint64("session", d.session).
		Msg("editor opened")
}

// Mode returns the dialog state.
func (d *Dialog) Mode() catalog.Mode {
	return d.mode
}

// IsOpen reports whether a session is active.
func (d *Dialog) IsOpen() bool {
	return d.mode != catalog.ModeClosed
}

// Draft returns a copy of the draft.
func (d *Dialog) Draft() model.Product {
	return d.draft.Clone()
}

// ImagePending reports whether an image read is still outstanding.
func (d *Dialog) ImagePending() bool {
	return d.imagePending
}

// Context is cancelled, with cause ErrSessionClosed, when the current
// session closes.
func (d *Dialog) Context() context.Context {
	return d.ctx
}

// UpdateField sets one text field of the draft.
func (d *Dialog) UpdateField(name, value string) error {
	if !d.IsOpen() {
		return model.ErrEditorClosed
	}
	return d.draft.SetField(name, value)
}

// SetSpecification adds or replaces a specification entry.
func (d *Dialog) SetSpecification(key, value string) error {
	if !d.IsOpen() {
		return model.ErrEditorClosed
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return &model.ValidationError{Fields: map[string]string{
			"specifications": "specification names are required",
		}}
	}
	d.draft.Specifications[key] = value
	return nil
}

// RemoveSpecification deletes a specification entry if present.
func (d *Dialog) RemoveSpecification(key string) error {
	if !d.IsOpen() {
		return model.ErrEditorClosed
	}
	delete(d.draft.Specifications, key)
	return nil
}

// LoadImage reads src in the background and replaces the draft image once
// the read completes. The form stays editable meanwhile. A result is dropped
// if the session closed or a newer image was chosen or cleared in between.
// A failed read leaves the image untouched and tells the user.
func (d *Dialog) LoadImage(src imageload.Source) error {
	if !d.IsOpen() {
		return model.ErrEditorClosed
	}

	d.abandonImage()
	d.imageSeq++
	session, seq := d.session, d.imageSeq
	d.imagePending = true

	loadCtx, cancel := context.WithCancel(d.ctx)
	d.imageCancel = cancel

	err := d.exec.Submit(loadCtx,
		func(ctx context.Context) (any, error) {
			return d.images.Load(ctx, src)
		},
		func(val any, err error) {
			d.applyImage(session, seq, src.Name(), val, err)
		},
	)
	if err != nil {
		d.abandonImage()
		d.imagePending = false
		return fmt.Errorf("failed to start image read: %w", err)
	}
	return nil
}

// abandonImage cancels the read behind the pending selection, if any.
func (d *Dialog) abandonImage() {
	if d.imageCancel != nil {
		d.imageCancel()
		d.imageCancel = nil
	}
}

func (d *Dialog) applyImage(session, seq uint64, name string, val any, err error) {
	if session != d.session || !d.IsOpen() {
		d.logger.Debug().Str("source", name).Msg("discarding image for closed editor")
		return
	}
	if seq != d.imageSeq {
		d.logger.Debug().Str("source", name).Msg("discarding superseded image")
		return
	}

	d.imagePending = false
	d.abandonImage()

	if err != nil {
		d.logger.Warn().Err(err).Str("source", name).Msg("image read failed")
		d.notifier.Error(msgImageFailed)
		return
	}

	d.draft.Image = val.(string)
}

// ClearImage removes the draft image and abandons any pending read.
func (d *Dialog) ClearImage() error {
	if !d.IsOpen() {
		return model.ErrEditorClosed
	}
	d.abandonImage()
	d.imageSeq++
	d.imagePending = false
	d.draft.Image = ""
	return nil
}

// Submit validates the draft and hands it to the sink. On validation failure
// the dialog stays open and the sink is not called. Otherwise the dialog
// closes, whatever the sink decides.
func (d *Dialog) Submit() (model.Product, error) {
	if !d.IsOpen() {
		return model.Product{}, model.ErrEditorClosed
	}

	candidate := d.candidate()
	if err := validateDraft(d.validate, candidate); err != nil {
		d.logger.Debug().Err(err).Msg("draft rejected")
		d.notifier.Error(msgInvalid)
		return model.Product{}, err
	}

	saved, err := d.sink.Save(candidate)
	d.close()
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to save product: %w", err)
	}
	return saved, nil
}

func (d *Dialog) candidate() model.Product {
	c := d.draft.Clone()
	c.ID = d.originalID
	c.Title = strings.TrimSpace(c.Title)
	c.Category = strings.TrimSpace(c.Category)

	// Specification keys are trimmed on entry. Keys carried over from the
	// stored product are saved as they are, so two of them never merge.
	if len(c.Specifications) == 0 {
		c.Specifications = nil
	}
	return c
}

// RequestClose discards the draft and tells the sink the edit was cancelled.
func (d *Dialog) RequestClose() {
	if !d.IsOpen() {
		return
	}
	d.sink.CancelEdit()
	d.close()
}

func (d *Dialog) close() {
	d.cancel(ErrSessionClosed)
	d.imageCancel = nil
	d.logger.Debug().Uint64("session", d.session).Msg("editor closed")

	d.mode = catalog.ModeClosed
	d.draft = model.Product{}
	d.originalID = ""
	d.imagePending = false
}

// PreviewTarget snapshots the rendered preview of the draft.
func (d *Dialog) PreviewTarget() (export.RenderTarget, error) {
	if !d.IsOpen() {
		return export.RenderTarget{}, model.ErrEditorClosed
	}
	preview := d.draft.Clone()
	return export.RenderTarget{
		Kind:     export.TargetPreview,
		Title:    preview.Title,
		Products: []model.Product{preview},
	}, nil
}

// ExportDraftPreview hands a preview target to the exporter. It does not
// touch dialog state, so it may run away from the event loop; ctx should be
// bound to the session with Bind. Failures are reported to the user, except
// when the session closed underneath the export.
func (d *Dialog) ExportDraftPreview(ctx context.Context, target export.RenderTarget, cfg export.Config) (*export.Result, error) {
	result, err := d.exporter.Export(ctx, target, cfg)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrSessionClosed) {
			d.logger.Debug().Str("filename", cfg.Filename).Msg("preview export abandoned")
			return nil, fmt.Errorf("%w: %w", model.ErrExportFailed, ErrSessionClosed)
		}
		d.logger.Error().Err(err).Str("filename", cfg.Filename).Msg("preview export failed")
		d.notifier.Error(msgPreviewFailed)
		return nil, fmt.Errorf("%w: %w", model.ErrExportFailed, err)
	}

	d.logger.Info().Str("filename", result.Filename).Msg("preview exported")
	d.notifier.Success(msgPreviewExported)
	return result, nil
}

// Bind derives a context from ctx that is also cancelled when session ends.
func Bind(ctx, session context.Context) (context.Context, context.CancelFunc) {
	bound, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(session, func() {
		cancel(context.Cause(session))
	})
	return bound, func() {
		stop()
		cancel(context.Canceled)
	}
}

// Snapshot is a read-only view of the dialog for rendering.
type Snapshot struct {
	Mode         catalog.Mode  `json:"mode"`
	Draft        model.Product `json:"draft"`
	ImagePending bool          `json:"imagePending"`
}

// Snapshot copies the dialog state.
func (d *Dialog) Snapshot() Snapshot {
	return Snapshot{
		Mode:         d.mode,
		Draft:        d.Draft(),
		ImagePending: d.imagePending,
	}
}
