package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/konpigg/soupd/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds provider settings for the OpenAI-compatible adapter.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	JudgeModel    string
	GenerateModel string
	Timeout       time.Duration
}

// OpenAIClient implements Client and Generator against any OpenAI-compatible
// chat completion API.
type OpenAIClient struct {
	api           *openai.Client
	judgeModel    string
	generateModel string
	timeout       time.Duration
	logger        *slog.Logger
}

// NewOpenAI creates the adapter. It fails fast when no API key is configured
// rather than letting every game die on its first judged turn.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		api:           openai.NewClientWithConfig(clientCfg),
		judgeModel:    cfg.JudgeModel,
		generateModel: cfg.GenerateModel,
		timeout:       timeout,
		logger:        logger,
	}, nil
}

func (c *OpenAIClient) complete(ctx context.Context, model, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedVerdict)
	}
	return resp.Choices[0].Message.Content, nil
}

// JudgeQuestion classifies a question against the bottom.
func (c *OpenAIClient) JudgeQuestion(ctx context.Context, p domain.Puzzle, transcript []domain.Entry, question string) (domain.Verdict, error) {
	reply, err := c.complete(ctx, c.judgeModel, judgeSystemPrompt, buildQuestionPrompt(p, transcript, question))
	if err != nil {
		return "", fmt.Errorf("judge question: %w", err)
	}

	verdict, err := parseVerdict(reply)
	if err != nil {
		c.logger.Warn("Judge reply unparsable", "puzzle_id", p.ID, "reply", reply)
		return "", err
	}
	return verdict, nil
}

// JudgeGuess grades a reconstruction attempt against the bottom.
func (c *OpenAIClient) JudgeGuess(ctx context.Context, p domain.Puzzle, guess string) (domain.GuessResult, error) {
	reply, err := c.complete(ctx, c.judgeModel, verifySystemPrompt, buildGuessPrompt(p, guess))
	if err != nil {
		return domain.GuessResult{}, fmt.Errorf("judge guess: %w", err)
	}

	result, err := parseGuessResult(reply)
	if err != nil {
		c.logger.Warn("Verifier reply unparsable", "puzzle_id", p.ID, "reply", reply)
		return domain.GuessResult{}, err
	}
	return result, nil
}

// GeneratePuzzle asks the provider for a fresh puzzle.
func (c *OpenAIClient) GeneratePuzzle(ctx context.Context) (domain.Puzzle, error) {
	reply, err := c.complete(ctx, c.generateModel, generateSystemPrompt, buildGeneratePrompt())
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("generate puzzle: %w", err)
	}

	surface, bottom, err := parsePuzzle(reply)
	if err != nil {
		c.logger.Warn("Generator reply unparsable", "reply", reply)
		return domain.Puzzle{}, err
	}

	return domain.Puzzle{
		ID:        domain.DeriveID(surface),
		Surface:   surface,
		Bottom:    bottom,
		Source:    domain.SourceLocal,
		CreatedAt: time.Now(),
	}, nil
}

var (
	_ Client    = (*OpenAIClient)(nil)
	_ Generator = (*OpenAIClient)(nil)
)
