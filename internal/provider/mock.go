package provider

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// Mock is a deterministic offline provider for dry runs and tests. The
// image bytes are a function of the prompt only.
type Mock struct{}

func (m *Mock) Generate(_ context.Context, req Request) (Result, error) {
	sum := sha256.Sum256([]byte(req.Prompt))
	payload := fmt.Sprintf("mock-image model=%s prompt-digest=%x", req.ModelID, sum[:8])
	return Result{Bytes: []byte(payload), Format: "png"}, nil
}
