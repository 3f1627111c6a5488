package provider

import (
	"context"
	"encoding/base64"
	"os"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI generates images through the official openai-go SDK (Images API).
type OpenAI struct {
	opts []option.RequestOption
}

func NewOpenAI(opts ...option.RequestOption) *OpenAI {
	return &OpenAI{opts: opts}
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (Result, error) {
	opts := o.opts
	if len(opts) == 0 {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return Result{}, fatalErr("OPENAI_API_KEY environment variable not set")
		}
		opts = []option.RequestOption{option.WithAPIKey(apiKey)}
	}
	client := openai.NewClient(opts...)

	resp, err := client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         effectivePrompt(req),
		Model:          openai.ImageModel(req.ModelID),
		Size:           sizeForAspectRatio(req.AspectRatio),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return Result{}, transientErr("openai: %v", err)
	}
	if len(resp.Data) == 0 {
		return Result{}, transientErr("openai: empty image response")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Result{}, transientErr("openai: decode image payload: %v", err)
	}
	return Result{Bytes: raw, Format: "png"}, nil
}

func sizeForAspectRatio(ratio string) openai.ImageGenerateParamsSize {
	switch ratio {
	case "16:9", "4:3":
		return openai.ImageGenerateParamsSize1792x1024
	case "9:16", "3:4":
		return openai.ImageGenerateParamsSize1024x1792
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}
