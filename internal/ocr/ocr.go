// Package ocr is a thin port to an external OCR engine. Reimplementing OCR is
// out of scope; this package only moves bytes and classifies failures.
package ocr

import (
	"context"
	"net/http"
	"strings"

	"github.com/and161185/scanwin/internal/errs"
)

// Engine extracts raw text from a receipt image. Implementations must honor
// context cancellation; extraction is an external I/O-bound call.
type Engine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// SniffImage reports whether the payload looks like an image. Non-image input
// fails fast without reaching the engine.
func SniffImage(image []byte) bool {
	return strings.HasPrefix(http.DetectContentType(image), "image/")
}

// CheckImage validates the payload as an image, mapping failure to
// ErrUnreadableReceipt.
func CheckImage(image []byte) error {
	if len(image) == 0 || !SniffImage(image) {
		return errs.ErrUnreadableReceipt
	}
	return nil
}
