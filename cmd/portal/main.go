// Package main provides the portal CLI: the HTTP server plus schema, seed and
// feed inspection commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/handlers"
	"fusion-portal-backend/pkg/logger"
	"fusion-portal-backend/pkg/router"
	"fusion-portal-backend/pkg/seed"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app 子命令共享的配置和日志
type app struct {
	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "portal",
		Short:         "Intranet content portal backend",
		Long:          "Serves spaces and their aggregated posts, documents, events and polls.",
		Version:       handlers.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.LoadConfig()
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.log = logger.NewWithWriter(a.cfg, cmd.ErrOrStderr())
			return nil
		},
	}
	rootCmd.SetVersionTemplate("portal version {{.Version}}\n")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newSeedCmd(a))
	rootCmd.AddCommand(newFeedCmd(a))

	return rootCmd
}

// open 打开配置指定的数据库
func (a *app) open() (database.DatabaseInterface, error) {
	db, err := database.NewDatabase(database.ConfigFrom(a.cfg), a.log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = net.JoinHostPort("", a.cfg.Port)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool := database.NewPool(nil, a.log)
			defer pool.Close()
			go pool.RunCleanup(ctx, time.Minute)

			db, err := pool.Get(ctx, database.ConfigFrom(a.cfg))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			// 长驻进程使用更大的连接池
			if pg, ok := db.(*database.PostgresDatabase); ok {
				pg.TunePool()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           router.New(router.Deps{Config: a.cfg, DB: db, Log: a.log, Pool: pool}),
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       2 * time.Minute,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithFields(logrus.Fields{
					"addr":        addr,
					"environment": a.cfg.Environment,
					"driver":      database.ConfigFrom(a.cfg).ResolveDriver(),
				}).Info("Server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default :$PORT)")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the spaces and content tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			m, ok := db.(database.Migrator)
			if !ok {
				return fmt.Errorf("driver %q manages its own schema", database.ConfigFrom(a.cfg).ResolveDriver())
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := m.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Import spaces and content from a YAML or JSON fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := seed.NewImporter(db, a.log).Import(cmd.Context(), fx)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table or json (default depends on terminal)")
	return cmd
}

func newFeedCmd(a *app) *cobra.Command {
	var (
		opts    feed.Options
		page    feed.Page
		format  string
		showIDs bool
	)

	cmd := &cobra.Command{
		Use:   "feed <space-id>",
		Short: "Print the aggregated feed of a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := feed.ValidateSpaceID(args[0]); err != nil {
				return err
			}
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			engine := router.NewEngine(a.cfg, db, a.log)
			res, err := engine.Query(cmd.Context(), args[0], opts, page)
			if err != nil {
				return err
			}
			return printFeed(cmd.OutOrStdout(), res, format, showIDs)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Tab, "tab", "", "Tab filter: all, blogs, or an exact content type (document, event, poll)")
	f.StringVarP(&opts.Query, "query", "q", "", "Case-insensitive search on the item title")
	f.StringVar(&opts.Category, "category", "", "Only items tagged with this category")
	f.StringVar(&opts.Action, "action", "", "recent or popular")
	f.StringVar(&opts.Sort, "sort", "", "newest, oldest or popular (default keeps feed order)")
	f.IntVar(&page.Number, "page", 1, "Page number, starting at 1")
	f.IntVar(&page.Size, "page-size", feed.DefaultPageSize, "Items per page")
	f.StringVarP(&format, "format", "f", "", "Output format: table or json (default depends on terminal)")
	f.BoolVar(&showIDs, "ids", false, "Show item ids in table output")
	return cmd
}
