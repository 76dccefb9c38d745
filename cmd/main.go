package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/audience-backend/internal/app"
	"github.com/yungbote/audience-backend/internal/platform/envutil"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
)

var rootCmd = &cobra.Command{
	Use:           "audience",
	Short:         "Audience query backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

var serveWithWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API, the stale round sweeper and the status collector.

Unless Temporal is configured (TEMPORAL_ADDRESS), round_execute jobs also run
in this process; pass --worker=false to leave them to a separate worker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), func(a *app.App) app.RunOptions {
			return app.RunOptions{HTTP: true, Worker: serveWithWorker && a.Clients.Temporal == nil}
		})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run round_execute jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), func(*app.App) app.RunOptions {
			return app.RunOptions{Worker: true}
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Migrate(cmd.Context())
	},
}

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed access token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := services.NewAuthService(logger.Nop(), envutil.String("JWT_SECRET", ""), envutil.String("JWT_ISSUER", ""))
		if err != nil {
			return err
		}
		tok, err := auth.IssueToken(tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWorker, "worker", true, "run jobs in-process when Temporal is not configured")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to put in the subject claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, tokenCmd)
}

func run(ctx context.Context, pick func(*app.App) app.RunOptions) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx, pick(a))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
