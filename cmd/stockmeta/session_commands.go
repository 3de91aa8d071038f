package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockmeta/internal/session"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the signed-in user and stored Gemini API key",
	}
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionLoginCommand(ctx))
	sessionCmd.AddCommand(newSessionLogoutCommand(ctx))
	sessionCmd.AddCommand(newSessionKeyCommand(ctx))
	return sessionCmd
}

func withSession(ctx *commandContext, fn func(*session.Store) error) error {
	store, err := ctx.openSession()
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(ctx, func(store *session.Store) error {
				key, err := store.APIKey(cmd.Context())
				if err != nil {
					return err
				}
				user, err := store.User(cmd.Context())
				signedIn := err == nil
				if err != nil && !errors.Is(err, session.ErrNoSession) {
					return err
				}
				if jsonOut {
					payload := map[string]any{"hasApiKey": key != ""}
					if signedIn {
						payload["user"] = user
					}
					return writeJSON(cmd, payload)
				}
				out := cmd.OutOrStdout()
				if !signedIn {
					fmt.Fprintln(out, "Not signed in")
					fmt.Fprintf(out, "API key stored: %s\n", yesNo(key != ""))
					return nil
				}
				rows := [][]string{
					{"Email", user.Email},
					{"Name", user.Name},
					{"Role", string(user.Role)},
					{"Plan", user.Plan},
					{"Credits", user.Credits},
					{"Signed in", user.LoggedInAt.Local().Format(time.DateTime)},
					{"API key stored", yesNo(key != "")},
				}
				renderTable(out, []column{leftCol("Session"), leftCol("")}, rows)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSessionLoginCommand(ctx *commandContext) *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an email address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			user, err := session.Login(email, name, password, cfg.Session.DeveloperEmails, time.Now())
			if err != nil {
				return err
			}
			return withSession(ctx, func(store *session.Store) error {
				if err := store.SaveUser(cmd.Context(), user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Name, user.Plan)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the email user part)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required for developer accounts)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSessionLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; the stored API key is kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(ctx, func(store *session.Store) error {
				if err := store.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newSessionKeyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the Gemini API key (reads stdin when no key is given; blank clears)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			return withSession(ctx, func(store *session.Store) error {
				if err := store.SetAPIKey(cmd.Context(), key); err != nil {
					return err
				}
				if key == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "API key cleared")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "API key stored")
				}
				return nil
			})
		},
	}
}
