package login

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	sdctx "sopdrop.com/cli/internal/context"
)

const (
	FlagToken = "token"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the sopdrop registry",
		Long: `Login verifies a personal access token and stores it for later
commands. Create a token in your account settings, or open the address
printed by this command.

Without --token the token is read interactively, hidden when the
terminal allows it.`,
		Example: `sopdrop login
sopdrop login --token "$(cat ~/secrets/sopdrop-token)"`,
		Args:              cobra.NoArgs,
		RunE:              Login,
		DisableAutoGenTag: true,
	}

	cmd.Flags().String(FlagToken, "", "personal access token, read interactively when omitted")

	return cmd
}

func Login(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	token, err := cmd.Flags().GetString(FlagToken)
	if err != nil {
		return fmt.Errorf("getting token flag failed: %w", err)
	}
	if token == "" {
		if token, err = readToken(cmd, client.Config().ServerURL); err != nil {
			return err
		}
	}
	if token == "" {
		return errors.New("no token provided, login cancelled")
	}

	user, err := client.Login(cmd.Context(), token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Username)
	return err
}

// readToken asks for the token on the terminal with echo disabled.
// Non-terminal input, a pipe or a test buffer, falls back to reading a
// single line.
func readToken(cmd *cobra.Command, serverURL string) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Create a token at %s/auth/cli\n", serverURL)
	fmt.Fprint(out, "Token: ")

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading token failed: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading token failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}
