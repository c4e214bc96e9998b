package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (default: $TRAJET_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
}

func (f *credentialFlags) resolve() (string, string, error) {
	password := f.password
	if password == "" {
		password = os.Getenv("TRAJET_PASSWORD")
	}
	if password == "" {
		return "", "", errors.New("a password is required: pass --password or set TRAJET_PASSWORD")
	}
	return strings.TrimSpace(f.email), password, nil
}

func newLoginCmd(c *cli) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			email, password, err := creds.resolve()
			if err != nil {
				return err
			}
			if err := c.ensure(ctx); err != nil {
				return err
			}
			if err := c.sess.SignIn(ctx, email, password); err != nil {
				return err
			}
			return c.printIdentity()
		},
	}
	creds.register(cmd)
	return cmd
}

func newSignupCmd(c *cli) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			email, password, err := creds.resolve()
			if err != nil {
				return err
			}
			if err := c.ensure(ctx); err != nil {
				return err
			}
			if err := c.sess.SignUp(ctx, email, password); err != nil {
				return err
			}
			if c.sess.User() == nil {
				fmt.Fprintln(c.out, "Account created. Confirm your email, then run trajetctl login.")
				return nil
			}
			return c.printIdentity()
		},
	}
	creds.register(cmd)
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ensure(commandContext(cmd)); err != nil {
				return err
			}
			if err := c.sess.SignOut(commandContext(cmd)); err != nil {
				fmt.Fprintln(c.errOut, "warning: the backend did not confirm the sign-out:", err)
			}
			fmt.Fprintln(c.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ensure(commandContext(cmd)); err != nil {
				return err
			}
			return c.printIdentity()
		},
	}
}

type identity struct {
	Email   string `json:"email,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

func (c *cli) printIdentity() error {
	u := c.sess.User()
	if u == nil {
		if c.jsonOutput {
			return c.printJSON(identity{})
		}
		fmt.Fprintln(c.out, "Not signed in.")
		return nil
	}
	id := identity{Email: u.Email, UserID: u.ID, IsAdmin: c.sess.IsAdmin()}
	if c.jsonOutput {
		return c.printJSON(id)
	}
	role := "user"
	if id.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(c.out, "Signed in as %s (%s)\n", id.Email, role)
	return nil
}

func newGrantAdminCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <email>",
		Short: "Give an account admin rights (local backend only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := c.ensure(ctx); err != nil {
				return err
			}
			local := c.app.Backend.Local
			if local == nil {
				return errors.New("grant-admin only works with the local backend; manage Supabase admins in the dashboard")
			}
			u, err := local.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(args[0])))
			if err != nil {
				return fmt.Errorf("find account %s: %w", args[0], err)
			}
			if err := local.GrantAdmin(ctx, u.ID); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s is now an admin.\n", u.Email)
			return nil
		},
	}
}
