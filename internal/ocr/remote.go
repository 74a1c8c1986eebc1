package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Remote calls an external OCR service over HTTP. The service receives the
// image base64-encoded and answers with plain text.
type Remote struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewRemote(endpoint, apiKey string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Remote{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Filename  string `json:"filename"`
	Language  string `json:"language"`
	ModelType string `json:"model_type"`
	Image     string `json:"image"`
}

type remoteResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Remote) Recognize(ctx context.Context, in Input) (*Result, error) {
	body, err := json.Marshal(remoteRequest{
		Filename:  in.Filename,
		Language:  string(in.Language),
		ModelType: string(in.Model),
		Image:     base64.StdEncoding.EncodeToString(in.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/recognize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ocr service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr service status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out remoteResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("ocr service error: %s: %s", out.Error.Type, out.Error.Message)
	}

	return &Result{
		Text:       out.Text,
		Source:     SourceRemote,
		Language:   in.Language,
		Model:      in.Model,
		Confidence: out.Confidence,
	}, nil
}

// Close releases idle connections.
func (c *Remote) Close() {
	c.httpClient.CloseIdleConnections()
}
