// Package datagen turns natural-language requests into mock JSON payloads
// using a text-completion backend.
package datagen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bcnelson/sandbox-console/internal/completion"
	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCount = 5
	MaxCount     = 50
)

const systemPrompt = "You generate realistic mock data for API testing. " +
	"Respond with valid JSON only. Do not add explanations."

// GenerateRequest describes the data to produce.
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
	// Schema is an optional free-form description of the fields wanted.
	Schema string `json:"schema,omitempty" validate:"max=4000"`
	Count  int    `json:"count,omitempty" validate:"omitempty,gte=1,lte=50"`
}

// Result is a successfully parsed generation.
type Result struct {
	Data any    `json:"data"`
	Raw  string `json:"raw"`
}

// Error is a user-facing generation failure. Raw holds the model output when
// there was one.
type Error struct {
	Message string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Generator builds prompts and parses completions.
type Generator struct {
	client completion.Client
}

// New creates a generator. A nil client makes every call fail with
// domain.ErrCompletionUnavailable.
func New(client completion.Client) *Generator {
	return &Generator{client: client}
}

// Generate asks the completion backend for data and extracts JSON from the reply.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required: %w", domain.ErrInvalidInput)
	}
	if g.client == nil {
		return nil, &Error{Message: "Data generation is not configured", Err: domain.ErrCompletionUnavailable}
	}

	raw, err := g.client.Complete(ctx, BuildPrompt(req))
	if err != nil {
		log.Warn().Err(err).Msg("completion failed")
		msg := "The data generation service is unavailable. Please try again."
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "The data generation service timed out. Please try again."
		}
		return nil, &Error{Message: msg, Err: err}
	}

	data, err := Extract(raw)
	if err != nil {
		log.Warn().Int("bytes", len(raw)).Msg("completion returned no parsable JSON")
		return nil, &Error{Message: "Could not parse generated data as JSON", Raw: raw, Err: err}
	}
	return &Result{Data: data, Raw: raw}, nil
}

// BuildPrompt renders the completion prompt for req.
func BuildPrompt(req GenerateRequest) completion.Prompt {
	count := req.Count
	if count <= 0 {
		count = DefaultCount
	}
	count = min(count, MaxCount)

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d items of mock data.\n", count)
	fmt.Fprintf(&b, "Request: %s\n", strings.TrimSpace(req.Prompt))
	if s := strings.TrimSpace(req.Schema); s != "" {
		fmt.Fprintf(&b, "Follow this schema:\n%s\n", s)
	}
	b.WriteString("Return a JSON array.")
	return completion.Prompt{System: systemPrompt, User: b.String()}
}
