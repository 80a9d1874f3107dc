package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/movie-explorer/internal/client"
	"github.com/iliyamo/movie-explorer/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Sign in with a code sent to your email",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

var linkCmd = &cobra.Command{
	Use:   "link <callback-url>",
	Short: "Sign in with the magic link from your email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flow := client.NewLoginFlow(api)
		if err := flow.CompleteLink(commandContext(cmd), args[0]); err != nil {
			if errors.Is(err, client.ErrInvalidCode) {
				return errors.New("the link is invalid or has expired")
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", flow.User().Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.Logout(commandContext(cmd)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		l := api.Lookup(commandContext(cmd))
		out := cmd.OutOrStdout()
		switch l.State {
		case session.Authenticated:
			fmt.Fprintf(out, "%s (%s)\n", l.User.Email, l.User.ID)
		case session.Anonymous:
			fmt.Fprintln(out, "Not signed in.")
		default:
			return fmt.Errorf("account service unreachable: %w", l.Err)
		}
		return nil
	},
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	prompt := func(label string) (string, bool) {
		fmt.Fprint(out, label)
		if !in.Scan() {
			return "", false
		}
		return strings.TrimSpace(in.Text()), true
	}

	flow := client.NewLoginFlow(api)
	if l := flow.Resume(ctx); l.State == session.Authenticated {
		fmt.Fprintf(out, "Already signed in as %s\n", l.User.Email)
		return nil
	}

	email := ""
	if len(args) > 0 {
		email = args[0]
	}
	for flow.State() != client.Authenticated {
		switch flow.State() {
		case client.EnteringEmail:
			if email == "" {
				var ok bool
				if email, ok = prompt("Email: "); !ok {
					return in.Err()
				}
			}
			err := flow.SubmitEmail(ctx, email)
			email = ""
			if errors.Is(err, client.ErrEmailRequired) {
				fmt.Fprintln(out, err)
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "We sent a code to %s. Enter it below, or type \"back\" to change the address.\n", flow.Email())
		case client.OtpSent:
			code, ok := prompt("Code: ")
			if !ok {
				return in.Err()
			}
			if strings.EqualFold(code, "back") {
				flow.Back()
				continue
			}
			err := flow.SubmitCode(ctx, code)
			switch {
			case errors.Is(err, client.ErrInvalidCode):
				fmt.Fprintln(out, "Invalid code. Please try again.")
			case errors.Is(err, client.ErrCodeLength):
				fmt.Fprintln(out, err)
			case err != nil:
				return err
			}
		}
	}
	fmt.Fprintf(out, "Signed in as %s\n", flow.User().Email)
	return nil
}
