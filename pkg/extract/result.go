// Package extract turns free-form user messages into structured event data
// via an LLM call: it builds the extraction prompt, parses and validates the
// model's JSON response, and normalizes the result into domain values.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Action classifies what the extractor decided the message represents.
type Action string

const (
	// ActionCreate records a new event.
	ActionCreate Action = "create"

	// ActionUpdate revises an existing event, matched by update_title.
	ActionUpdate Action = "update"
)

// CallFunc is the signature for an LLM inference call.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// RawResult mirrors the JSON contract the extraction model must satisfy.
// String fields carry the model's output verbatim; sentinel recognition and
// date parsing happen in Normalize, nowhere else.
type RawResult struct {
	Action      string   `json:"action"`
	UpdateTitle string   `json:"update_title"`
	Target      string   `json:"target"`
	Expires     string   `json:"expires"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Time        string   `json:"time"`
	Place       string   `json:"place"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
}

// Extractor invokes the model and validates its response shape.
// Retry policy for transient model failures belongs to the CallFunc.
type Extractor struct {
	call CallFunc
}

// NewExtractor creates an Extractor around the given LLM call.
func NewExtractor(call CallFunc) *Extractor {
	return &Extractor{call: call}
}

// Extract sends the prompt and parses the response into a RawResult.
// A failed call surfaces as ErrExtractionFailed; an unusable response as
// ErrInvalidResult.
func (e *Extractor) Extract(ctx context.Context, prompt string) (*RawResult, error) {
	response, err := e.call(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	return ParseResult(response)
}

// ParseResult parses the model's response text into a RawResult.
// The JSON object may be wrapped in markdown code fences or prose.
func ParseResult(response string) (*RawResult, error) {
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		endIdx := strings.LastIndex(response, "}")
		if endIdx > idx {
			jsonStr = response[idx : endIdx+1]
		}
	}

	var raw RawResult
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response JSON: %v", ErrInvalidResult, err)
	}

	switch Action(raw.Action) {
	case ActionCreate, ActionUpdate:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidResult, raw.Action)
	}

	if raw.Content == "" {
		return nil, fmt.Errorf("%w: missing content", ErrInvalidResult)
	}

	return &raw, nil
}
