package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/nl2sql/internal/ai"
	"github.com/xxxsen/nl2sql/internal/metrics"
	"github.com/xxxsen/nl2sql/internal/model"
	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
)

var (
	ErrAIUnavailable = ai.ErrUnavailable
	ErrEmptySQL      = errors.New("model returned no text")
)

const sqlSystemInstruction = `You are an expert SQL query generator.
Your task is to convert natural language descriptions into correct SQL queries.
Always format your response as valid SQL code that can be executed directly.
Do not include explanations unless specifically asked.
Make sure to use proper SQL syntax and best practices.
If the request is ambiguous, make reasonable assumptions and note them briefly.`

type SQLServiceConfig struct {
	Model     string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type SQLService struct {
	provider ai.IProvider
	cfg      SQLServiceConfig
	cache    *expirable.LRU[string, string]
}

func NewSQLService(provider ai.IProvider, cfg SQLServiceConfig) *SQLService {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Hour
	}
	return &SQLService{
		provider: provider,
		cfg:      cfg,
		cache:    expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Generate turns a natural-language request into SQL, using history as
// conversational context.
func (s *SQLService) Generate(ctx context.Context, prompt string, history []model.ChatMessage) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", appErr.ErrInvalid
	}
	if s.provider == nil {
		return "", ErrAIUnavailable
	}
	logger := logutil.GetLogger(ctx).With(zap.Int("prompt_len", len(prompt)), zap.Int("history_len", len(history)))
	key := cacheKey(prompt, history)
	if cached, ok := s.cache.Get(key); ok {
		metrics.RecordGeneration(metrics.OutcomeCached)
		return cached, nil
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := s.provider.Generate(ctx, s.cfg.Model, &ai.GenerateRequest{
		SystemInstruction: buildSystemInstruction(history),
		Prompt:            prompt,
		Temperature:       0.2,
		TopK:              40,
		TopP:              0.95,
		MaxOutputTokens:   1000,
	})
	metrics.ObserveGeneration(time.Since(start))
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			metrics.RecordGeneration(metrics.OutcomeUnavailable)
			return "", ErrAIUnavailable
		}
		metrics.RecordGeneration(metrics.OutcomeFailure)
		logger.Error("sql generation failed", zap.String("provider", s.provider.Name()), zap.Error(err))
		return "", fmt.Errorf("generate sql: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.RecordGeneration(metrics.OutcomeFailure)
		logger.Warn("model returned empty text")
		return "", ErrEmptySQL
	}
	metrics.RecordGeneration(metrics.OutcomeSuccess)
	s.cache.Add(key, text)
	return text, nil
}

func formatHistory(history []model.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		speaker := "AI"
		if msg.Role == model.ChatRoleUser {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, msg.Content))
	}
	return strings.Join(lines, "\n")
}

func buildSystemInstruction(history []model.ChatMessage) string {
	if len(history) == 0 {
		return sqlSystemInstruction
	}
	return sqlSystemInstruction + "\n\nPrevious conversation:\n" + formatHistory(history) + "\n"
}

func cacheKey(prompt string, history []model.ChatMessage) string {
	data, _ := json.Marshal(struct {
		Prompt  string              `json:"p"`
		History []model.ChatMessage `json:"h"`
	}{prompt, history})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
