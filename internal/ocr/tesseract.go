package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Tesseract extracts text from images via a tesseract-server instance.
type Tesseract struct {
	baseURL string
	client  *http.Client
}

// NewTesseract creates a Tesseract recognizer against the given server URL.
func NewTesseract(baseURL string, timeout time.Duration) *Tesseract {
	return &Tesseract{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type tesseractResponse struct {
	Data struct {
		Exit struct {
			Code int `json:"code"`
		} `json:"exit"`
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
	} `json:"data"`
}

// Recognize uploads the image and returns the recognized text.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	opts, err := mw.CreateFormField("options")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create options field")
	}
	if _, err := opts.Write([]byte(`{"languages":["eng"]}`)); err != nil {
		return "", eris.Wrap(err, "ocr: write options field")
	}

	fw, err := mw.CreateFormFile("file", "notice.png")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create file field")
	}
	if _, err := fw.Write(image); err != nil {
		return "", eris.Wrap(err, "ocr: write image")
	}
	if err := mw.Close(); err != nil {
		return "", eris.Wrap(err, "ocr: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/tesseract", &buf)
	if err != nil {
		return "", eris.Wrap(err, "ocr: create tesseract request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ocr: tesseract call")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ocr: read tesseract response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("ocr: tesseract returned %d: %s", resp.StatusCode, string(body))
	}

	var out tesseractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "ocr: unmarshal tesseract response")
	}
	if out.Data.Exit.Code != 0 {
		return "", eris.Errorf("ocr: tesseract exited %d: %s", out.Data.Exit.Code, out.Data.Stderr)
	}

	return out.Data.Stdout, nil
}
