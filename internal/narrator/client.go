package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("narrator unavailable")

type HTTPConfig struct {
	BaseURL    string
	Timeout    time.Duration // per attempt
	MaxRetries int
	Backoff    time.Duration
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
}

// HTTPClient talks to the narration endpoint: POST {question, content},
// JSON verdict back. Replies are extracted leniently (models wrap JSON in
// fences or prose), validated, and clamped; persistent failure degrades to
// the deterministic fallback at the call site.
type HTTPClient struct {
	cfg  HTTPConfig
	http *http.Client
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	cfg.defaults()
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type askRequest struct {
	Question string `json:"question"`
	Content  string `json:"content"`
}

func (c *HTTPClient) Ask(ctx context.Context, question, content string) (Verdict, error) {
	body, err := json.Marshal(askRequest{Question: question, Content: content})
	if err != nil {
		return Verdict{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.cfg.Backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return Verdict{}, ctx.Err()
			}
		}

		v, err := c.ask(ctx, body)
		if err == nil {
			return v, nil
		}
		lastErr = err
		slog.Warn("narrator attempt failed", "attempt", attempt, "err", err)
	}
	return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *HTTPClient) ask(ctx context.Context, body []byte) (Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Verdict{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(raw)
}

// parseVerdict pulls the first JSON object out of the response and
// validates it against the collaborator contract.
func parseVerdict(raw []byte) (Verdict, error) {
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return Verdict{}, errors.New("no json object in reply")
	}

	var v Verdict
	if err := json.Unmarshal(raw[start:end+1], &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(v.Answer)) {
	case "yes":
		v.Answer = "yes"
	case "no":
		v.Answer = "no"
	case "unrelated":
		v.Answer = "unrelated"
	default:
		return Verdict{}, fmt.Errorf("bad answer %q", v.Answer)
	}

	if v.Score < 1 {
		v.Score = 1
	}
	if v.Score > 10 {
		v.Score = 10
	}
	if v.Progress < 0 {
		v.Progress = 0
	}
	if v.Progress > 100 {
		v.Progress = 100
	}
	return v, nil
}
