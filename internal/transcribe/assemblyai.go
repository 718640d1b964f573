// Package transcribe submits episode audio to AssemblyAI and persists the
// resulting utterances.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// Client calls the AssemblyAI v2 REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates an AssemblyAI client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// submitRequest is the POST /transcript body.
type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	LanguageCode  string `json:"language_code,omitempty"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

// Result is a transcription job snapshot. Status is one of "queued",
// "processing", "completed", "error".
type Result struct {
	ID         string                 `json:"id"`
	Status     string                 `json:"status"`
	Error      string                 `json:"error,omitempty"`
	Utterances []transcript.Utterance `json:"utterances"`
	Words      []transcript.Word      `json:"words"`
}

// Submit enqueues a transcription of the audio at audioURL and returns the
// job id to poll.
func (c *Client) Submit(ctx context.Context, audioURL, lang string) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:      audioURL,
		LanguageCode:  lang,
		SpeakerLabels: true,
	})
	if err != nil {
		return "", err
	}

	var res Result
	if err := c.do(ctx, http.MethodPost, "/transcript", bytes.NewReader(body), &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", fmt.Errorf("submit: empty transcript id")
	}
	return res.ID, nil
}

// Poll fetches the current state of a transcription job.
func (c *Client) Poll(ctx context.Context, id string) (*Result, error) {
	var res Result
	if err := c.do(ctx, http.MethodGet, "/transcript/"+id, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("assemblyai request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assemblyai API error (status %d): %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
