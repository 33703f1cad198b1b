package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/and161185/scanwin/internal/errs"
)

// HTTPEngine calls a remote OCR service over HTTP. The engine is expected to
// accept a POSTed image body and answer {"text": "..."}.
type HTTPEngine struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPEngine constructs an engine client with a per-call timeout.
func NewHTTPEngine(url string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		url:     url,
		client:  &http.Client{},
		timeout: timeout,
	}
}

// ExtractText sends the image to the engine and returns the recognized text.
// Every failure mode maps to ErrUnreadableReceipt: from the pipeline's point of
// view the receipt could not be read, and the user may retry with a new photo.
func (e *HTTPEngine) ExtractText(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUnreadableReceipt, err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUnreadableReceipt, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: engine status %d", errs.ErrUnreadableReceipt, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUnreadableReceipt, err)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: bad engine response", errs.ErrUnreadableReceipt)
	}
	if out.Text == "" {
		return "", fmt.Errorf("%w: empty result", errs.ErrUnreadableReceipt)
	}
	return out.Text, nil
}
