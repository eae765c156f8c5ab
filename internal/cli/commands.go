package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xxxsen/nl2sql/internal/client"
	"github.com/xxxsen/nl2sql/internal/model"
)

const defaultServer = "http://localhost:8080"

type clientOptions struct {
	server      string
	sessionPath string
}

func (o *clientOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.server, "server", envOr("NL2SQL_SERVER", defaultServer), "nl2sql server base url")
	cmd.Flags().StringVar(&o.sessionPath, "session", "", "session file (default ~/.nl2sql/session.json)")
}

func (o *clientOptions) open() (*client.APIClient, *client.Session, error) {
	path := o.sessionPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, ".nl2sql", "session.json")
	}
	api := client.NewAPIClient(o.server, nil)
	session, err := client.NewSession(api, client.NewFileStorage(path))
	if err != nil {
		return nil, nil, err
	}
	return api, session, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// AddClientCommands attaches the commands that talk to a running server.
func AddClientCommands(root *cobra.Command) {
	root.AddCommand(
		newLoginCommand(),
		newSignupCommand(),
		newLogoutCommand(),
		newWhoamiCommand(),
		newAskCommand(),
		newChatCommand(),
	)
}

func newLoginCommand() *cobra.Command {
	var (
		opts  clientOptions
		email string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := opts.open()
			if err != nil {
				return err
			}
			reader := bufio.NewReader(cmd.InOrStdin())
			pw, err := promptPassword(cmd.InOrStdin(), reader, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := session.Login(cmd.Context(), email, pw); err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), "Logged in as", session.User())
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCommand() *cobra.Command {
	var (
		opts  clientOptions
		email string
		name  string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "create an account and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := opts.open()
			if err != nil {
				return err
			}
			reader := bufio.NewReader(cmd.InOrStdin())
			pw, err := promptPassword(cmd.InOrStdin(), reader, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := session.Signup(cmd.Context(), email, pw, name); err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), "Signed up as", session.User())
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	var opts clientOptions
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := opts.open()
			if err != nil {
				return err
			}
			if err := session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newWhoamiCommand() *cobra.Command {
	var opts clientOptions
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "show the stored session user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := opts.open()
			if err != nil {
				return err
			}
			if !session.LoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			printUser(cmd.OutOrStdout(), "Logged in as", session.User())
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newAskCommand() *cobra.Command {
	var opts clientOptions
	cmd := &cobra.Command{
		Use:   "ask <request...>",
		Short: "translate one request into SQL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, session, err := opts.open()
			if err != nil {
				return err
			}
			result, err := api.GenerateSQL(cmd.Context(), session.Token(), strings.Join(args, " "), nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newChatCommand() *cobra.Command {
	var opts clientOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "interactive session; earlier turns are sent as context",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, session, err := opts.open()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())
			var history []model.ChatMessage
			for {
				fmt.Fprint(out, "> ")
				line, err := readLine(reader)
				if err != nil {
					if errors.Is(err, io.EOF) {
						fmt.Fprintln(out)
						return nil
					}
					return err
				}
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				}
				result, err := api.GenerateSQL(cmd.Context(), session.Token(), line, history)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				fmt.Fprintln(out, result)
				history = append(history,
					model.ChatMessage{Role: model.ChatRoleUser, Content: line},
					model.ChatMessage{Role: model.ChatRoleAssistant, Content: result},
				)
			}
		},
	}
	opts.bind(cmd)
	return cmd
}

func printUser(w io.Writer, prefix string, user *model.PublicUser) {
	if user == nil {
		return
	}
	fmt.Fprintf(w, "%s %s <%s>\n", prefix, user.Name, user.Email)
}
