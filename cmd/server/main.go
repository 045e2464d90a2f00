package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/shortlink/internal/auth"
	"github.com/joshdurbin/shortlink/internal/config"
	"github.com/joshdurbin/shortlink/internal/logging"
	"github.com/joshdurbin/shortlink/internal/repository/postgres"
	"github.com/joshdurbin/shortlink/internal/repository/sqlite"
	"github.com/joshdurbin/shortlink/internal/transport/client"
)

var rootCmd = &cobra.Command{
	Use:          "shortlink",
	Short:        "A rate-limited URL shortening service",
	Long:         "A URL shortening service with per-caller rate limiting, click analytics and SQLite or PostgreSQL storage",
	SilenceUsage: true,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the URL shortening server",
	RunE:  runServer,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue [IDENTITY]",
	Short: "Issue a bearer token for an identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenIssue,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with the server",
}

var shortenCmd = &cobra.Command{
	Use:   "shorten [URL]",
	Short: "Create a short URL",
	Args:  cobra.ExactArgs(1),
	RunE: withCommands(func(ctx context.Context, c *client.Commands, args []string) error {
		return c.Shorten(ctx, args[0])
	}),
}

var getCmd = &cobra.Command{
	Use:   "get [SHORT_CODE]",
	Short: "Get information about a short URL",
	Args:  cobra.ExactArgs(1),
	RunE: withCommands(func(ctx context.Context, c *client.Commands, args []string) error {
		return c.Get(ctx, args[0])
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete [SHORT_CODE]",
	Short: "Delete a short URL",
	Args:  cobra.ExactArgs(1),
	RunE: withCommands(func(ctx context.Context, c *client.Commands, args []string) error {
		return c.Delete(ctx, args[0])
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your short URLs",
	RunE: withCommands(func(ctx context.Context, c *client.Commands, args []string) error {
		return c.List(ctx)
	}),
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics [SHORT_CODE]",
	Short: "Show click analytics for a short URL",
	Args:  cobra.ExactArgs(1),
	RunE: withCommands(func(ctx context.Context, c *client.Commands, args []string) error {
		return c.Analytics(ctx, args[0])
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the current token",
	RunE: withCommands(func(ctx context.Context, c *client.Commands, args []string) error {
		return c.Logout(ctx)
	}),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")

	// Server command flags
	serverCmd.Flags().StringP("port", "p", "", "Server port")
	serverCmd.Flags().String("base-url", "", "Public base URL used to build short URLs")
	serverCmd.Flags().String("db-path", "", "SQLite database file path")
	serverCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging (HTTP request and error bodies)")

	// Token command flags
	tokenIssueCmd.Flags().Duration("ttl", 0, "Token lifetime, defaults to auth.token_ttl")

	// Client command flags
	clientCmd.PersistentFlags().StringP("server-url", "u", envOr("SHORTLINK_URL", "http://localhost:8080"), "Server URL")
	clientCmd.PersistentFlags().StringP("token", "t", os.Getenv("SHORTLINK_TOKEN"), "Bearer token")

	// Add subcommands
	tokenCmd.AddCommand(tokenIssueCmd)
	clientCmd.AddCommand(shortenCmd, getCmd, deleteCmd, listCmd, analyticsCmd, logoutCmd)
	rootCmd.AddCommand(serverCmd, migrateCmd, tokenCmd, clientCmd)
}

// loadConfig loads the config file named by --config and applies the server flags that were set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	return config.Load(path, func(c *config.Config) {
		flags := cmd.Flags()
		if flags.Lookup("port") != nil && flags.Changed("port") {
			c.Server.Port, _ = flags.GetString("port")
		}
		if flags.Lookup("base-url") != nil && flags.Changed("base-url") {
			c.Server.BaseURL, _ = flags.GetString("base-url")
		}
		if flags.Lookup("db-path") != nil && flags.Changed("db-path") {
			c.Database.Driver = config.DriverSQLite
			c.Database.Path, _ = flags.GetString("db-path")
		}
		if flags.Lookup("verbose") != nil && flags.Changed("verbose") {
			c.Logging.Verbose, _ = flags.GetBool("verbose")
		}
	})
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return postgres.Migrate(cfg.Database.DSN, logger)
	default:
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		logger.Info("database migrated", "path", cfg.Database.Path)
		return repo.Close()
	}
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
		cfg.Auth.TokenTTL = ttl
	}

	token, claims, err := auth.NewTokenManager(cfg.Auth).Issue(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	return nil
}

// withCommands adapts a client operation into a cobra RunE with a bounded context
func withCommands(fn func(ctx context.Context, c *client.Commands, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server-url")
		token, _ := cmd.Flags().GetString("token")
		commands := client.NewCommands(client.NewClient(serverURL, token), cmd.OutOrStdout())

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		return fn(ctx, commands, args)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
