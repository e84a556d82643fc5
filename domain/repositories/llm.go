package repositories

import "context"

// ReplyRequest carries one user utterance plus the rolling conversational
// context surfaced by the session buffer.
type ReplyRequest struct {
	UserText     string
	Context      string // alternating User:/Response: lines, may be empty
	LastCategory string // topic of the previous exchange, for reference resolution
}

// Reply is the model's answer with a free-form topic/intent label.
type Reply struct {
	Text     string
	Category string
}

// LargeLanguageModel abstracts the LLM query/response client.
type LargeLanguageModel interface {
	Respond(ctx context.Context, req ReplyRequest) (Reply, error)
}
