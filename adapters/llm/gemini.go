package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/NotSquiz/atlas-bridge/domain/repositories"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.7
	defaultMaxTokens      = 256
	defaultTimeoutSeconds = 30
)

// systemPrompt frames the assistant as a short-form voice companion. The
// first line of every reply must carry the category so the session buffer
// can classify the exchange.
const systemPrompt = `You are Atlas, a concise voice assistant. Reply in one
or two short sentences suitable for speech synthesis. Begin every reply with
a line of the form "Category: <one word>" classifying the user's topic
(health, pain, workout, sleep, general), then the spoken reply on the
following lines.`

var fallbackReplies = []string{
	"I didn't catch that. Could you say it again?",
	"Sorry, I'm having trouble right now. Let's try again in a moment.",
	"I missed that one. Can you repeat it?",
}

// GeminiLLM implements LargeLanguageModel using Google's Gemini API.
type GeminiLLM struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
	timeout         time.Duration
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a new Gemini LLM instance. The API key is read from
// GEMINI_API_KEY.
func NewGeminiLLM(logger *zap.Logger) (*GeminiLLM, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{
		client:          client,
		logger:          logger,
		model:           defaultModel,
		temperature:     defaultTemperature,
		maxOutputTokens: defaultMaxTokens,
		timeout:         defaultTimeoutSeconds * time.Second,
	}, nil
}

// Respond generates one reply for the transcribed utterance, injecting the
// recent-exchange context and last category into the prompt.
func (g *GeminiLLM) Respond(ctx context.Context, req repositories.ReplyRequest) (repositories.Reply, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if req.Context != "" {
		contents = append(contents, genai.NewContentFromText(
			"Recent conversation:\n"+req.Context, genai.RoleUser))
	}
	if req.LastCategory != "" {
		contents = append(contents, genai.NewContentFromText(
			"The previous exchange was categorized as: "+req.LastCategory, genai.RoleUser))
	}
	contents = append(contents, genai.NewContentFromText(req.UserText, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: int32(g.maxOutputTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		g.logger.Error("Failed to generate reply", zap.Error(err))
		return g.fallbackReply(req.LastCategory), nil
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil ||
		len(response.Candidates[0].Content.Parts) == 0 {
		g.logger.Warn("No content generated")
		return g.fallbackReply(req.LastCategory), nil
	}

	var responseText string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			responseText += part.Text
		}
	}
	if responseText == "" {
		g.logger.Warn("Empty reply from model")
		return g.fallbackReply(req.LastCategory), nil
	}

	reply := parseReply(responseText)
	g.logger.Info("Reply generated",
		zap.String("category", reply.Category),
		zap.Int("length", len(reply.Text)))
	return reply, nil
}

// parseReply splits the "Category: <word>" header line from the spoken
// body. A reply without the header becomes category "general".
func parseReply(text string) repositories.Reply {
	text = strings.TrimSpace(text)
	first, rest, found := strings.Cut(text, "\n")
	if category, ok := strings.CutPrefix(strings.TrimSpace(first), "Category:"); ok && found {
		return repositories.Reply{
			Text:     strings.TrimSpace(rest),
			Category: strings.ToLower(strings.TrimSpace(category)),
		}
	}
	return repositories.Reply{Text: text, Category: "general"}
}

func (g *GeminiLLM) fallbackReply(lastCategory string) repositories.Reply {
	category := lastCategory
	if category == "" {
		category = "general"
	}
	index := int(time.Now().UnixNano()) % len(fallbackReplies)
	return repositories.Reply{
		Text:     fallbackReplies[index],
		Category: category,
	}
}
