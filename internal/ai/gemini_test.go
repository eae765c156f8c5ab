package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewProviderGemini(t *testing.T) {
	p, err := NewProvider(" Gemini ", map[string]interface{}{"api_key": " key "})
	require.NoError(t, err)
	require.Equal(t, "gemini", p.Name())
	require.Equal(t, "key", p.(*geminiProvider).apiKey)
}

func TestNewProviderErrors(t *testing.T) {
	_, err := NewProvider("", nil)
	require.ErrorContains(t, err, "ai.provider is required")
	_, err = NewProvider("unknown", nil)
	require.ErrorContains(t, err, "unsupported ai provider")
	_, err = NewProvider("gemini", nil)
	require.ErrorContains(t, err, "config is required")
}

func TestGeminiWithoutKeyIsUnavailable(t *testing.T) {
	p, err := NewProvider("gemini", map[string]interface{}{})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "gemini-2.0-flash", &GenerateRequest{Prompt: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestBuildGenerateConfig(t *testing.T) {
	cfg := buildGenerateConfig(&GenerateRequest{
		SystemInstruction: "be terse",
		Temperature:       0.2,
		TopK:              40,
		TopP:              0.95,
		MaxOutputTokens:   1000,
	})
	require.Equal(t, float32(0.2), *cfg.Temperature)
	require.Equal(t, float32(40), *cfg.TopK)
	require.Equal(t, float32(0.95), *cfg.TopP)
	require.Equal(t, int32(1000), cfg.MaxOutputTokens)
	require.Equal(t, "be terse", cfg.SystemInstruction.Parts[0].Text)

	require.Nil(t, buildGenerateConfig(&GenerateRequest{}).SystemInstruction)
}

func TestWrapAPIErrorKeepsUpstreamStatus(t *testing.T) {
	upstream := genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded"}
	err := wrapAPIError(fmt.Errorf("generate: %w", upstream))
	code, ok := StatusCode(err)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.ErrorAs(t, err, &genai.APIError{})

	plain := errors.New("dial tcp: connection refused")
	require.Equal(t, plain, wrapAPIError(plain))
	_, ok = StatusCode(plain)
	require.False(t, ok)
}
