package llm

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestConvertGeminiError(t *testing.T) {
	apiErr := genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded for metric"}

	err := convertGeminiError(fmt.Errorf("generate: %w", apiErr))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.Code != 429 || se.Status != "RESOURCE_EXHAUSTED" {
		t.Errorf("unexpected status error: %+v", se)
	}
	if Classify(err) != Retryable {
		t.Error("quota error should be retryable")
	}

	denied := convertGeminiError(genai.APIError{Code: 403, Status: "PERMISSION_DENIED", Message: "API key not valid"})
	if Classify(denied) != Fatal {
		t.Error("permission error should be fatal")
	}
}

func TestConvertGeminiErrorPassthrough(t *testing.T) {
	plain := errors.New("dial tcp: i/o timeout")
	if got := convertGeminiError(plain); got != plain {
		t.Errorf("unstructured errors should pass through, got %v", got)
	}
}

func TestGeminiPrefix(t *testing.T) {
	if (&Gemini{}).Prefix() != "models/" {
		t.Error("unexpected prefix")
	}
}
