package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/nl2sql/internal/ai"
	"github.com/xxxsen/nl2sql/internal/handler"
	"github.com/xxxsen/nl2sql/internal/pkg/jwt"
	"github.com/xxxsen/nl2sql/internal/repo"
	"github.com/xxxsen/nl2sql/internal/service"
)

type historyProvider struct {
	instructions []string
}

func (p *historyProvider) Name() string { return "history" }

func (p *historyProvider) Generate(ctx context.Context, model string, req *ai.GenerateRequest) (string, error) {
	p.instructions = append(p.instructions, req.SystemInstruction)
	return "SELECT '" + req.Prompt + "';", nil
}

func newServer(t *testing.T, provider ai.IProvider) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	secret := []byte("test-secret")
	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api"), handler.RouterDeps{
		Auth:      handler.NewAuthHandler(service.NewAuthService(repo.NewMemoryUserRepo(), secret, jwt.DefaultTTL), false),
		SQL:       handler.NewSQLHandler(service.NewSQLService(provider, service.SQLServiceConfig{}), false),
		JWTSecret: secret,
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "nl2sql", SilenceUsage: true, SilenceErrors: true}
	AddClientCommands(root)
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSignupWhoamiLogout(t *testing.T) {
	url := newServer(t, &historyProvider{})
	session := filepath.Join(t.TempDir(), "session.json")
	common := []string{"--server", url, "--session", session}

	out, err := run(t, "pw123456\n", append([]string{"signup", "--email", "a@x.com", "--name", "A"}, common...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Signed up as A <a@x.com>")

	out, err = run(t, "", append([]string{"whoami"}, common...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as A <a@x.com>")

	out, err = run(t, "", append([]string{"logout"}, common...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")

	out, err = run(t, "", append([]string{"whoami"}, common...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in")

	_, err = run(t, "wrong\n", append([]string{"login", "--email", "a@x.com"}, common...)...)
	require.EqualError(t, err, "Invalid email or password")

	out, err = run(t, "pw123456\n", append([]string{"login", "--email", "a@x.com"}, common...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as A <a@x.com>")
}

func TestAsk(t *testing.T) {
	url := newServer(t, &historyProvider{})
	out, err := run(t, "", "ask", "--server", url, "--session", filepath.Join(t.TempDir(), "s.json"), "count", "users")
	require.NoError(t, err)
	require.Contains(t, out, "SELECT 'count users';")
}

func TestChatSendsHistory(t *testing.T) {
	provider := &historyProvider{}
	url := newServer(t, provider)
	out, err := run(t, "first\n\nsecond\nexit\n", "chat", "--server", url, "--session", filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	require.Contains(t, out, "SELECT 'first';")
	require.Contains(t, out, "SELECT 'second';")

	require.Len(t, provider.instructions, 2)
	require.NotContains(t, provider.instructions[0], "Previous conversation:")
	require.Contains(t, provider.instructions[1], "Previous conversation:\nUser: first\nAI: SELECT 'first';\n")
}
