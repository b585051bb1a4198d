package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-verdict",
		Description: "verdict for a single answer",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"isCorrect": map[string]any{"type": "boolean"},
				"feedback":  map[string]any{"type": "string"},
			},
			"required":             []any{"isCorrect", "feedback"},
			"additionalProperties": false,
		},
	}
}

func TestValidateResponse_ValidJSON(t *testing.T) {
	raw := json.RawMessage(`{"isCorrect":true,"feedback":"well done"}`)
	if err := validateResponse(testSchema(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateResponse_NotJSON(t *testing.T) {
	raw := json.RawMessage(`Sure, here is the verdict:`)
	err := validateResponse(testSchema(), raw)
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidResponse, got: %v", err)
	}
	if string(invalid.Content) != string(raw) {
		t.Errorf("error should carry original content")
	}
}

func TestValidateResponse_MissingRequired(t *testing.T) {
	raw := json.RawMessage(`{"isCorrect":true}`)
	err := validateResponse(testSchema(), raw)
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestValidateResponse_WrongType(t *testing.T) {
	raw := json.RawMessage(`{"isCorrect":"yes","feedback":"hm"}`)
	err := validateResponse(testSchema(), raw)
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	raw := json.RawMessage(`anything goes without a schema`)
	if err := validateResponse(nil, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetCompiledSchema_Cached(t *testing.T) {
	s := testSchema()
	first, err := getCompiledSchema(s)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := getCompiledSchema(s)
	if err != nil {
		t.Fatalf("compile (cached): %v", err)
	}
	if first != second {
		t.Error("expected the cached compiled schema on second lookup")
	}
}
