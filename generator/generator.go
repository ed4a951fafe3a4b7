// Package generator produces and revises feedback drafts. Every operation
// tries the configured backend first and falls back to deterministic local
// heuristics, so callers always receive a structurally valid Draft.
package generator

import (
	"context"

	"github.com/sirupsen/logrus"

	"feedback_agent/feedback"
	"feedback_agent/llm"
)

// Generator creates first drafts and applies revision instructions.
type Generator struct {
	llm llm.Client
	log logrus.FieldLogger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// New returns a Generator. A nil client means local heuristics only.
func New(client llm.Client, opts ...Option) *Generator {
	g := &Generator{llm: client, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.WithField("component", "generator")
	return g
}

// Generate produces the first draft for a request.
func (g *Generator) Generate(ctx context.Context, req feedback.RequestContext) feedback.Draft {
	return g.delegate(ctx, req, func() (llm.Prompt, error) {
		return BuildInitialPrompt(req)
	}, func() feedback.Draft {
		return LocalDraft(req)
	})
}

// Revise produces a new draft from prev and the reviewer's instructions. prev
// is never modified.
func (g *Generator) Revise(ctx context.Context, prev feedback.Draft, instructions []string, req feedback.RequestContext) feedback.Draft {
	return g.delegate(ctx, req, func() (llm.Prompt, error) {
		return BuildRevisionPrompt(prev, instructions, req)
	}, func() feedback.Draft {
		return LocalRevise(prev, instructions, req)
	})
}

// delegate asks the backend once and normalizes its answer. Any failure along
// the way yields the local fallback instead.
func (g *Generator) delegate(ctx context.Context, req feedback.RequestContext, build func() (llm.Prompt, error), fallback func() feedback.Draft) feedback.Draft {
	if g.llm == nil {
		return fallback()
	}
	prompt, err := build()
	if err != nil {
		g.log.WithError(err).Debug("prompt build failed, using local draft")
		return fallback()
	}
	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		g.log.WithError(err).WithField("task", prompt.Task).Debug("backend failed, using local draft")
		return fallback()
	}
	obj, err := llm.ParseObject(raw)
	if err != nil {
		g.log.WithError(err).WithField("task", prompt.Task).Debug("unparseable draft, using local draft")
		return fallback()
	}
	draft, err := Normalize(obj, req)
	if err != nil {
		g.log.WithError(err).WithField("task", prompt.Task).Debug("unusable draft, using local draft")
		return fallback()
	}
	return draft
}
