package llm

import (
	"context"
	"fmt"

	"github.com/NotSquiz/atlas-bridge/domain/repositories"
)

// MockLargeLanguageModel echoes the user text back, for development and
// tests without an API key. Respond can be overridden per test.
type MockLargeLanguageModel struct {
	RespondFunc func(ctx context.Context, req repositories.ReplyRequest) (repositories.Reply, error)
}

var _ repositories.LargeLanguageModel = (*MockLargeLanguageModel)(nil)

func (m *MockLargeLanguageModel) Respond(ctx context.Context, req repositories.ReplyRequest) (repositories.Reply, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, req)
	}
	return repositories.Reply{
		Text:     fmt.Sprintf("You said: %s", req.UserText),
		Category: "general",
	}, nil
}
