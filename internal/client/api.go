package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/nl2sql/internal/model"
)

// APIError is a non-2xx reply. Message carries the server's "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type AuthResult struct {
	User  *model.PublicUser `json:"user"`
	Token string            `json:"token"`
}

type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (a *APIClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := a.post(ctx, "/api/auth/login", "", body, &out, "Failed to login"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *APIClient) Signup(ctx context.Context, email, password, name string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password, "name": name}
	if err := a.post(ctx, "/api/auth/signup", "", body, &out, "Failed to signup"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *APIClient) GenerateSQL(ctx context.Context, token, prompt string, history []model.ChatMessage) (string, error) {
	if history == nil {
		history = []model.ChatMessage{}
	}
	var out struct {
		Result string `json:"result"`
	}
	body := map[string]interface{}{"prompt": prompt, "chatHistory": history}
	if err := a.post(ctx, "/api/generate-sql", token, body, &out, "Failed to generate SQL query"); err != nil {
		return "", err
	}
	return out.Result, nil
}

func (a *APIClient) post(ctx context.Context, path, token string, in, out interface{}, fallback string) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		msg := fallback
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
