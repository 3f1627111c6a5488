package provider

import (
	"context"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini generates images through the Google generative AI API.
type Gemini struct{}

func NewGemini() *Gemini {
	return &Gemini{}
}

func (g *Gemini) Generate(ctx context.Context, req Request) (Result, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return Result{}, fatalErr("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return Result{}, transientErr("create gemini client: %v", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.ModelID)

	prompt := effectivePrompt(req)
	if strings.TrimSpace(req.AspectRatio) != "" {
		prompt += ". Aspect ratio " + req.AspectRatio + "."
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Result{}, classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 {
		return Result{}, transientErr("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Result{}, transientErr("empty content returned from Gemini")
	}

	for _, part := range candidate.Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return Result{Bytes: blob.Data, Format: formatFromMIME(blob.MIMEType)}, nil
		}
	}
	return Result{}, transientErr("Gemini response contained no image data")
}

func classifyGeminiError(err error) *Error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key"), strings.Contains(lower, "permission"),
		strings.Contains(lower, "not found"), strings.Contains(lower, "invalid"):
		return fatalErr("gemini: %s", msg)
	default:
		return transientErr("gemini: %s", msg)
	}
}

func formatFromMIME(mime string) string {
	switch {
	case strings.Contains(mime, "png"):
		return "png"
	case strings.Contains(mime, "jpeg"), strings.Contains(mime, "jpg"):
		return "jpeg"
	case strings.Contains(mime, "webp"):
		return "webp"
	default:
		return ""
	}
}
