package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/target/ghsession/internal/bootstrap"
	domainauth "github.com/target/ghsession/internal/domain/auth"
)

func (c *cli) loginCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with GitHub in the browser",
		Long: `Open the GitHub authorization page, wait for the redirect, exchange the
code with the backend, and store the session. When a session already exists
it is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			defer c.closeRuntime(rt)

			out := cmd.OutOrStdout()
			if st := rt.Session.State(); st.SignedIn() && !force {
				return writef(out, "Already signed in as %s. Use --force to sign in again.\n", st.User.Login)
			}

			sess, err := rt.Session.SignIn(cmd.Context())
			if err != nil {
				if domainauth.IsDenied(err) {
					return errors.New("sign in was declined")
				}
				return err
			}
			return writef(out, "Signed in as %s\n", describeUser(sess.User))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "sign in again even when a session exists")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			defer c.closeRuntime(rt)

			wasSignedIn := rt.Session.State().SignedIn()
			if err := rt.Session.SignOut(cmd.Context()); err != nil {
				return err
			}
			if !wasSignedIn {
				return writef(cmd.OutOrStdout(), "Not signed in.\n")
			}
			return writef(cmd.OutOrStdout(), "Signed out.\n")
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			defer c.closeRuntime(rt)

			st := rt.Session.State()
			if !st.SignedIn() {
				return errNotSignedIn
			}
			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), st.User)
			}
			return writef(cmd.OutOrStdout(), "%s\n", st.User.Login)
		},
	}
	cmd.Flags().BoolVar(&c.asJSON, "json", false, "print the user as JSON")
	return cmd
}

type statusView struct {
	domainauth.State
	Storage   string `json:"storage"`
	UserKey   string `json:"user_key"`
	TokenKey  string `json:"token_key"`
	AuthMode  string `json:"auth_mode"`
	AgentAddr string `json:"agent_addr"`
}

func (c *cli) statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session state and where it is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			defer c.closeRuntime(rt)

			view := newStatusView(rt)
			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return writeStatus(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().BoolVar(&c.asJSON, "json", false, "print status as JSON")
	return cmd
}

func newStatusView(rt *bootstrap.Runtime) statusView {
	userKey, tokenKey := rt.Session.StorageKeys()
	return statusView{
		State:     rt.Session.State(),
		Storage:   string(rt.Store.Backend),
		UserKey:   userKey,
		TokenKey:  tokenKey,
		AuthMode:  string(rt.Config.Auth.Mode),
		AgentAddr: rt.Config.Agent.Addr,
	}
}

func writeStatus(w io.Writer, v statusView) error {
	user := "-"
	if v.User != nil {
		user = describeUser(*v.User)
	}
	lines := []string{
		fmt.Sprintf("State:    %s", v.Phase),
		fmt.Sprintf("User:     %s", user),
		fmt.Sprintf("Auth:     %s", v.AuthMode),
		fmt.Sprintf("Storage:  %s (%s, %s)", v.Storage, v.UserKey, v.TokenKey),
		fmt.Sprintf("Agent:    %s", v.AgentAddr),
	}
	return writef(w, "%s\n", strings.Join(lines, "\n"))
}

func describeUser(u domainauth.User) string {
	if u.Name != "" && u.Name != u.Login {
		return fmt.Sprintf("%s (%s)", u.Login, u.Name)
	}
	return u.Login
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if short {
				return writef(out, "%s\n", version)
			}
			return writef(out, "Version:    %s\nCommit:     %s\nBuilt:      %s\nGo version: %s\nOS/Arch:    %s/%s\n",
				version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	return cmd
}
