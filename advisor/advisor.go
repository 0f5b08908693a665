// Package advisor implements the external collaborators of the ledger engine
// on top of the Gemini API: a categorizer that turns source rows the
// deterministic rules could not place into transaction deltas, and an
// investigator that analyses reconciliation discrepancies.
//
// All advisor output crosses back into the engine through strict parsing;
// nothing a model says is trusted until it decodes into a checked type.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/ledgerline/ledgerline"
)

const model = "gemini-2.5-pro"

// defaultRetryAfter is used when a rate-limit response carries no retry hint.
const defaultRetryAfter = 30 * time.Second

// jsonConfig builds the chat configuration all advisors share: a system
// instruction and a JSON-only response contract.
func jsonConfig(instruction string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}
}

// ask sends one prompt on the chat and returns the first text part.
func ask(ctx context.Context, chat *genai.Chat, prompt string) (string, error) {
	resp, err := chat.Send(ctx, &genai.Part{Text: prompt})
	if err != nil {
		return "", translate(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// translate maps API rate limiting onto the engine's retryable contract so
// the session can suspend instead of failing.
func translate(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return &ledgerline.RetryableError{RetryAfter: defaultRetryAfter, Err: err}
	}
	return fmt.Errorf("model call: %w", err)
}
