package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const deepAIEndpoint = "https://api.deepai.org/api/text2img"

// DeepAI generates images through the DeepAI text2img HTTP API: a form
// POST returns an output_url, which is then fetched for the image bytes.
type DeepAI struct {
	client   *http.Client
	endpoint string
}

func NewDeepAI() *DeepAI {
	return &DeepAI{
		client:   &http.Client{Timeout: 180 * time.Second},
		endpoint: deepAIEndpoint,
	}
}

func (d *DeepAI) Generate(ctx context.Context, req Request) (Result, error) {
	apiKey := os.Getenv("DEEPAI_API_KEY")
	if apiKey == "" {
		return Result{}, fatalErr("DEEPAI_API_KEY environment variable not set")
	}

	form := url.Values{}
	form.Set("text", effectivePrompt(req))
	form.Set("grid_size", "1x1")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, transientErr("deepai: build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("api-key", apiKey)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return Result{}, transientErr("deepai: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, classifyHTTPStatus(resp.StatusCode, fmt.Sprintf("deepai: status %d: %s", resp.StatusCode, body))
	}

	var payload struct {
		OutputURL string `json:"output_url"`
		Err       string `json:"err"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, transientErr("deepai: decode response: %v", err)
	}
	if payload.OutputURL == "" {
		detail := payload.Err
		if detail == "" {
			detail = payload.Status
		}
		return Result{}, transientErr("deepai: no output_url in response: %s", detail)
	}

	return d.fetchImage(ctx, payload.OutputURL)
}

func (d *DeepAI) fetchImage(ctx context.Context, imageURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Result{}, transientErr("deepai: build image fetch: %v", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, transientErr("deepai: fetch image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyHTTPStatus(resp.StatusCode, fmt.Sprintf("deepai: image fetch status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, transientErr("deepai: read image body: %v", err)
	}
	if len(data) == 0 {
		return Result{}, transientErr("deepai: empty image body")
	}
	return Result{Bytes: data, Format: formatFromMIME(resp.Header.Get("Content-Type"))}, nil
}

func classifyHTTPStatus(status int, msg string) *Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fatalErr("%s", msg)
	default:
		return transientErr("%s", msg)
	}
}
