// Package airule runs the AI-engine checkpoints (§4.6 AI path) that the
// deterministic executors in internal/application/review/executors
// cannot express: checkpoints needing judgment against prose norms
// rather than a closed-form table check. Checkpoints are grouped into
// small batches and dispatched to a chat-completion-style LLMClient
// concurrently, with up to a configured number of retries (maxRetries)
// per batch and a single requeue round for whatever batches still failed.
package airule

import (
	"context"
	"time"
)

// Request is one batch's prompt: a checkpoint group, the document
// section context they apply to, and the norm chunks retrieved from the
// knowledge base to ground the model's judgment.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response is the model's raw completion; the driver parses Content as
// the issues-list JSON contract documented in prompt.go.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage mirrors the token accounting the teacher's LLM executor reports,
// carried through so batch cost can be logged per run.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the minimal chat-completion contract the driver needs;
// production wiring plugs in whichever concrete provider (OpenAI,
// Qwen-compatible endpoint, etc) the deployment is configured for.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// DefaultTimeout bounds a single batch call.
const DefaultTimeout = 90 * time.Second
