package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"namewise/internal/config"
	"namewise/internal/credentials"
	"namewise/internal/errors"
	"namewise/internal/log"
)

// maxResponseBytes caps how much of a completion response is read.
const maxResponseBytes = 1 << 20

// VisionClient asks an OpenAI-compatible chat completions endpoint for a
// filename. The same endpoint serves both modes; Visual requests attach the
// preview as an image_url content part.
type VisionClient struct {
	endpoint      string
	model         string
	maxTokens     int
	promptVisual  string
	promptTextual string
	creds         credentials.Store
	http          *http.Client
	logger        log.Logging
}

// NewVisionClient creates a client from the analyzer configuration
func NewVisionClient(cfg *config.Config, creds credentials.Store, logger log.Logging) *VisionClient {
	if logger == nil {
		logger = log.Default()
	}
	return &VisionClient{
		endpoint:      cfg.Analyzer.Endpoint,
		model:         cfg.Analyzer.Model,
		maxTokens:     cfg.Analyzer.MaxTokens,
		promptVisual:  cfg.Analyzer.PromptVisual,
		promptTextual: cfg.Analyzer.PromptTextual,
		creds:         creds,
		http:          &http.Client{Timeout: cfg.AnalyzerTimeout()},
		logger:        logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *VisionClient) WithHTTPClient(h *http.Client) *VisionClient {
	c.http = h
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *VisionClient) buildRequest(req Request) chatRequest {
	var content interface{}
	if req.Mode == Visual && req.Image != "" {
		content = []contentPart{
			{Type: "text", Text: c.promptVisual + "\n\n" + req.Describe()},
			{Type: "image_url", ImageURL: &imageURL{URL: req.Image, Detail: "low"}},
		}
	} else {
		content = c.promptTextual + "\n\n" + req.Describe()
	}

	return chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
	}
}

// Analyze sends req to the model and returns the cleaned suggestion.
func (c *VisionClient) Analyze(ctx context.Context, req Request) (string, error) {
	if c.creds == nil || !c.creds.Has() {
		return "", errors.NewAnalysisError("no API credential configured", req.Path, errors.AnalysisNoCredential, nil)
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", errors.NewAnalysisError("failed to encode request", req.Path, errors.AnalysisUnsupported, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewAnalysisError("failed to build request", req.Path, errors.AnalysisTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.creds.Get())

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.NewAnalysisError("request failed", req.Path, errors.AnalysisTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.NewAnalysisError("failed to read response", req.Path, errors.AnalysisTransport, err)
	}

	c.logger.With(
		log.F("path", req.Path),
		log.F("status", resp.StatusCode),
		log.F("mode", req.Mode.String()),
		log.F("elapsed", time.Since(start).Round(time.Millisecond).String()),
	).Debug("Analyzer responded")

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", errors.NewAnalysisError("analyzer returned an error", req.Path, errors.AnalysisTransport,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(msg, 200)))
	}
	if decodeErr != nil {
		return "", errors.NewAnalysisError("malformed analyzer response", req.Path, errors.AnalysisMalformedResponse, decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.NewAnalysisError("analyzer response has no choices", req.Path, errors.AnalysisMalformedResponse, nil)
	}

	suggestion := CleanSuggestion(parsed.Choices[0].Message.Content)
	if suggestion == "" {
		return "", errors.NewAnalysisError("analyzer returned an empty name", req.Path, errors.AnalysisMalformedResponse, nil)
	}
	return suggestion, nil
}
