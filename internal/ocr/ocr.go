package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/avgeo/notam-studio/internal/config"
)

// Recognizer extracts text from notice images. Failure is opaque: no
// partial text is ever returned alongside an error.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// NewRecognizer creates a Recognizer based on config.
func NewRecognizer(cfg config.OCRConfig) (Recognizer, error) {
	switch cfg.Provider {
	case "tesseract", "":
		return NewTesseract(cfg.TesseractURL, cfg.Timeout()), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
