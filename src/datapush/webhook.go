package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	pushTimeout    = 10 * time.Second
)

// RunReport is the JSON payload posted after each pipeline run.
type RunReport struct {
	StartedAt  time.Time          `json:"started_at"`
	Duration   string             `json:"duration"`
	Rows       int                `json:"rows"`
	OutputPath string             `json:"output_path,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Pusher posts run reports to a webhook. An empty URL disables pushing, so
// callers do not need to special-case unconfigured deployments.
type Pusher struct {
	url    string
	client *http.Client
}

func NewPusher(url string) *Pusher {
	return &Pusher{
		url:    url,
		client: &http.Client{Timeout: pushTimeout},
	}
}

// Push sends the report, retrying transient failures.
func (p *Pusher) Push(report RunReport) error {
	if p.url == "" {
		return nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}

	return retry(func() error {
		return p.post(payload)
	}, RETRY_TIMES, RETRY_INTERVAL)
}

func (p *Pusher) post(payload []byte) error {
	resp, err := p.client.Post(p.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("posting run report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %s", resp.Status)
	}
	return nil
}

func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("failed after %d attempts: %v", times, err)
}
