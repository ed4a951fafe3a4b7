// Package publisher renders final run results as Markdown and HTML documents,
// writes them to disk and optionally posts them to a webhook.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"feedback_agent/feedback"
)

const digestLimit = 120

// Config controls where documents go.
type Config struct {
	// Dir receives <run_id>.md and <run_id>.html; empty disables file output.
	Dir        string        `yaml:"dir" json:"dir" env:"FEEDBACK_PUBLISH_DIR"`
	WebhookURL string        `yaml:"webhook_url" json:"webhook_url" env:"FEEDBACK_WEBHOOK_URL" validate:"omitempty,url"`
	Inline     bool          `yaml:"inline_styles" json:"inline_styles" env:"FEEDBACK_PUBLISH_INLINE"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" env:"FEEDBACK_PUBLISH_TIMEOUT"`
}

// Document is one rendered result.
type Document struct {
	RunID    string          `json:"run_id"`
	Status   feedback.Status `json:"status"`
	Title    string          `json:"title"`
	Digest   string          `json:"digest"`
	Markdown string          `json:"markdown"`
	HTML     string          `json:"html"`
	Files    []string        `json:"-"`
}

// Publisher renders and delivers documents.
type Publisher struct {
	cfg    Config
	client *http.Client
	log    logrus.FieldLogger
}

// New creates a Publisher. A nil client gets one bounded by cfg.Timeout.
func New(cfg Config, client *http.Client, log logrus.FieldLogger) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{cfg: cfg, client: client, log: log.WithField("component", "publisher")}
}

// Render builds the document without delivering it.
func (p *Publisher) Render(res feedback.RunResult, format feedback.Format) (Document, error) {
	source := Markdown(res, format)
	html, err := HTML(source)
	if err != nil {
		return Document{}, err
	}
	if p.cfg.Inline {
		html = Inline(html)
	}
	return Document{
		RunID:    res.RunID,
		Status:   res.Status,
		Title:    "Personal development feedback: " + res.Draft.Topic,
		Digest:   Digest(res.Draft.Summary, digestLimit),
		Markdown: source,
		HTML:     html,
	}, nil
}

// Publish renders res and delivers it to every configured destination.
func (p *Publisher) Publish(ctx context.Context, res feedback.RunResult, format feedback.Format) (Document, error) {
	doc, err := p.Render(res, format)
	if err != nil {
		return Document{}, err
	}
	log := p.log.WithField("run_id", res.RunID)

	if p.cfg.Dir != "" {
		files, err := p.writeFiles(doc)
		if err != nil {
			return Document{}, err
		}
		doc.Files = files
		log.WithField("files", files).Info("document written")
	}
	if p.cfg.WebhookURL != "" {
		if err := p.post(ctx, doc); err != nil {
			return Document{}, err
		}
		log.Info("document posted to webhook")
	}
	return doc, nil
}

func (p *Publisher) writeFiles(doc Document) ([]string, error) {
	if err := os.MkdirAll(p.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("publish: create dir: %w", err)
	}
	outputs := []struct {
		ext  string
		body string
	}{
		{".md", doc.Markdown},
		{".html", doc.HTML},
	}
	files := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(p.cfg.Dir, doc.RunID+out.ext)
		if err := os.WriteFile(path, []byte(out.body), 0o644); err != nil {
			return nil, fmt.Errorf("publish: write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

func (p *Publisher) post(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("publish: encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("publish: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish: webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("publish: webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
