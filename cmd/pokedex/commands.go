package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/pokedex/internal/app"
	"github.com/Skotchmaster/pokedex/internal/config"
	"github.com/Skotchmaster/pokedex/pkg/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pokedex",
		Short:        "Pokedex API server and operator tools",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newRolesCmd(), newUsersCmd(), newTokensCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				log.Error("startup_failed", "error", err)
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error("close_failed", "error", err)
				}
				log.Info("shutdown_complete")
			}()

			return a.Run(ctx)
		},
	}
}

func newRolesCmd() *cobra.Command {
	roles := &cobra.Command{Use: "roles", Short: "Manage roles"}
	roles.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the admin and user roles if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Auth.SeedRoles(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "roles seeded")
				return nil
			})
		},
	})
	return roles
}

func newUsersCmd() *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Manage user roles"}
	users.AddCommand(
		&cobra.Command{
			Use:   "grant <email> <role-slug>",
			Short: "Give a user a role",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
					if err := a.Auth.GrantRole(ctx, args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", args[1], args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revoke-role <email> <role-slug>",
			Short: "Take a role away from a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
					if err := a.Auth.RevokeRole(ctx, args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", args[1], args[0])
					return nil
				})
			},
		},
	)
	return users
}

func newTokensCmd() *cobra.Command {
	tokensCmd := &cobra.Command{Use: "tokens", Short: "Maintain the token revocation list"}
	tokensCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete revocation entries whose tokens have expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Auth.PruneRevoked(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d revoked tokens\n", n)
				return nil
			})
		},
	})
	return tokensCmd
}

// withApp runs fn against a wired app. Operator commands stay quiet unless
// LOG_LEVEL asks for debug output.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg := config.Load()
	log := logging.Discard()
	if cfg.LogLevel == "debug" {
		log = logging.New(cfg.LogLevel)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
