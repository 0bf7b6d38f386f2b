package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autometa/internal/model"
	"autometa/internal/pool"
)

const (
	// DefaultBaseURL is the Gemini generateContent endpoint root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultTimeout bounds a single inference call.
	DefaultTimeout = 60 * time.Second

	// maxResponseBody caps how much of an error body is read for reporting.
	maxResponseBody = 1 << 20
)

// GeminiClient invokes the Gemini generateContent API once per Attempt.
type GeminiClient struct {
	BaseURL string
	// Prompt is supplied by the caller; its content is not owned here.
	Prompt string

	httpClient *http.Client
}

// NewGeminiClient creates a client with the given call timeout.
// A zero timeout falls back to DefaultTimeout.
func NewGeminiClient(baseURL, prompt string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiClient{
		BaseURL:    baseURL,
		Prompt:     prompt,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// generateRequest mirrors the subset of the generateContent body we send.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ThinkingConfig *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// generateResponse mirrors the subset of the response we consume.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Attempt performs one inference call and classifies its outcome.
// It mutates nothing beyond the outbound request.
func (c *GeminiClient) Attempt(ctx context.Context, job *model.Job, cred pool.Credential, m pool.Model) Outcome {
	mime, ok := mimeTypeFor(job.Path)
	if !ok {
		// Unsupported raw format: the provider cannot ingest it and no
		// amount of retrying changes that.
		return Outcome{Kind: OutcomeFatalClientError, Err: fmt.Errorf("unsupported input format %q: convert to a raster or supported video format first", filepath.Ext(job.Path))}
	}

	data, err := os.ReadFile(job.Path)
	if err != nil {
		return Outcome{Kind: OutcomeFileOperationError, Err: fmt.Errorf("reading input: %w", err)}
	}

	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: c.Prompt},
				{InlineData: &inlineData{
					MimeType: mime,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
	}
	if m.Thinking {
		// Thinking-capable models get an unconstrained budget; the rest of
		// the request is identical.
		body.GenerationConfig = &generationConfig{
			ThinkingConfig: &thinkingConfig{ThinkingBudget: -1},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Outcome{Kind: OutcomeFatalClientError, Err: fmt.Errorf("encoding request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, m.Name, cred.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Outcome{Kind: OutcomeFatalClientError, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No HTTP response at all: timeouts, resets, DNS. Worth another try.
		return Outcome{Kind: OutcomeTransientServerError, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Outcome{Kind: OutcomeTransientServerError, Err: fmt.Errorf("reading response: %w", err)}
	}

	if kind := ClassifyStatus(resp.StatusCode); kind != OutcomeSuccess {
		return Outcome{Kind: kind, Err: fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(raw, 200))}
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Outcome{Kind: OutcomeMalformedResponse, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if decoded.Error != nil {
		return Outcome{Kind: ClassifyStatus(decoded.Error.Code), Err: fmt.Errorf("provider error %d: %s", decoded.Error.Code, decoded.Error.Message)}
	}
	if len(decoded.Candidates) == 0 {
		return Outcome{Kind: OutcomeMalformedResponse, Err: fmt.Errorf("response has no candidates")}
	}

	var text string
	for _, p := range decoded.Candidates[0].Content.Parts {
		text += p.Text
	}
	md, err := ParseMetadata(text)
	if err != nil {
		return Outcome{Kind: OutcomeMalformedResponse, Err: err}
	}
	return Outcome{Kind: OutcomeSuccess, Payload: md}
}

// mimeTypeFor maps the input extension to the inline-data MIME type. The
// second return is false for formats the provider cannot ingest raw:
// PostScript vectors need an external rasterizer before they get here.
func mimeTypeFor(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	case ".svg":
		return "image/svg+xml", true
	case ".mp4":
		return "video/mp4", true
	case ".mov":
		return "video/quicktime", true
	case ".avi":
		return "video/x-msvideo", true
	case ".mkv":
		return "video/x-matroska", true
	default:
		return "", false
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
