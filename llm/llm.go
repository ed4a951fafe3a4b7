// Package llm abstracts the text-completion backend used for generation,
// evaluation and intake. Callers treat every error from a Client as a
// delegation failure and fall back to local logic.
package llm

import "context"

// Task labels what a prompt asks the backend to do.
type Task string

const (
	TaskGenerate Task = "generate"
	TaskRevise   Task = "revise"
	TaskEvaluate Task = "evaluate"
	TaskIntake   Task = "intake"
)

// Prompt is the message pair sent to the backend.
type Prompt struct {
	Task   Task
	System string
	User   string
}

// Client is the opaque completion service. Implementations must not retry.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, prompt Prompt) (string, error)

func (f ClientFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}
