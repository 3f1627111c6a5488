package provider

import (
	"context"
	"fmt"
	"strings"
)

// Request carries everything a provider needs to generate one image.
type Request struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	ModelID        string
}

// Result is a successfully generated image.
type Result struct {
	Bytes []byte
	// Format is the provider-reported image format ("png", "jpeg",
	// "webp"); empty means unknown and callers should assume png.
	Format string
}

// ErrorKind is a coarse classification of provider failures. The retry
// policy treats both kinds identically; the kind is surfaced so the user
// can tell a rate limit from a bad credential.
type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindFatal     ErrorKind = "fatal"
)

// Error is a classified provider failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func transientErr(format string, args ...any) *Error {
	return &Error{Kind: KindTransient, Message: fmt.Sprintf(format, args...)}
}

func fatalErr(format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Message: fmt.Sprintf(format, args...)}
}

// Provider turns a prompt plus generation parameters into image bytes.
type Provider interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// ForModel selects a provider implementation from the model identifier.
func ForModel(modelID string) (Provider, error) {
	id := strings.ToLower(strings.TrimSpace(modelID))
	switch {
	case id == "mock":
		return &Mock{}, nil
	case strings.HasPrefix(id, "gemini-") || strings.HasPrefix(id, "imagen-"):
		return NewGemini(), nil
	case strings.HasPrefix(id, "dall-e") || strings.HasPrefix(id, "gpt-image"):
		return NewOpenAI(), nil
	case strings.HasPrefix(id, "deepai"):
		return NewDeepAI(), nil
	default:
		return nil, fmt.Errorf("no provider for model %q", modelID)
	}
}

// effectivePrompt folds the negative prompt into the request prompt for
// providers whose API has no dedicated negative-prompt field.
func effectivePrompt(req Request) string {
	if strings.TrimSpace(req.NegativePrompt) == "" {
		return req.Prompt
	}
	return req.Prompt + ". Avoid: " + req.NegativePrompt
}
