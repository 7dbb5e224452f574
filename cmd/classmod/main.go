// Package main is the entry point for classmod.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/config"
	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/devserver"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/metrics"
	"github.com/pandeptwidyaop/classmod/internal/modelsdk"
	"github.com/pandeptwidyaop/classmod/internal/router"
	"github.com/pandeptwidyaop/classmod/internal/services"
	"github.com/pandeptwidyaop/classmod/internal/upgrade"
	"github.com/pandeptwidyaop/classmod/internal/ux"
	"github.com/pandeptwidyaop/classmod/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "classmod",
		Short:         "Rename a CSS class token across the pages, snippets and layouts of a working copy",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkflow(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})
	root.AddCommand(newDevServerCmd(&configPath))
	root.AddCommand(newUpgradeCmd())

	return root
}

// loadConfig reads .env from the working directory, then the YAML file and the environment.
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return config.Load(path)
}

func runWorkflow(parent context.Context, configPath string) error {
	printer := ux.NewPrinter(os.Stdout, os.Stderr)

	cfg, err := loadConfig(configPath)
	if err != nil {
		printer.Error("%v", err)
		return err
	}

	logger, err := logging.New(cfg.Output.Verbose)
	if err != nil {
		printer.Error("%v", err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	problems := cfg.Validate()
	for _, p := range problems {
		if errors.Is(p, config.ErrCredentials) {
			printer.Warn("Missing credentials. Provide %s.", printer.Highlight(p.Env))
			continue
		}
		printer.Warn("%v: %s", p.Err, printer.Highlight(p.Env))
	}
	if err := config.Fatal(problems); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := modelsdk.NewClient(modelsdk.Options{
		BaseURL:        cfg.Model.URL,
		Username:       cfg.Model.User,
		APIKey:         cfg.Model.Token,
		RequestTimeout: cfg.Model.GetRequestTimeout(),
		Logger:         logger,
	})
	if err != nil {
		printer.Error("Error opening model: \n %v", err)
		return err
	}

	var journal *services.JournalService
	if path := cfg.Output.JournalPath; path != "" {
		db, err := database.New(path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("error closing journal", zap.Error(err))
			}
		}()
		if err := db.MigrateJournal(); err != nil {
			return fmt.Errorf("failed to migrate journal: %w", err)
		}
		journal = services.NewJournalService(db)
	}

	runner := services.NewRunner(cfg, services.RunnerDeps{
		Service: client,
		Journal: journal,
		Printer: printer,
		Logger:  logger,
		Host:    metrics.GetHostInfo(ctx).Label(),
	})

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Error("run failed", zap.String("run", result.RunID), zap.Error(err))
		return err
	}
	logger.Debug("run finished",
		zap.String("run", result.RunID),
		zap.String("status", string(result.Status)),
		zap.Int("replacements", result.Replacements))
	return nil
}

func newDevServerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devserver",
		Short: "Run the local model service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Output.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := database.New(cfg.DevServer.DatabasePath)
			if err != nil {
				logger.Error("failed to connect to database", zap.Error(err))
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					logger.Warn("error closing database", zap.Error(err))
				}
			}()

			if err := db.MigrateServer(); err != nil {
				logger.Error("failed to run migrations", zap.Error(err))
				return err
			}

			server := devserver.New(db, cfg.DevServer, logger)
			if err := server.Seed(); err != nil {
				logger.Error("failed to seed", zap.Error(err))
				return err
			}
			defer server.Jobs.Wait()

			r := router.New(cfg.DevServer, server, logger)

			addr := fmt.Sprintf("%s:%d", cfg.DevServer.Host, cfg.DevServer.Port)
			logger.Info("classmod devserver starting", zap.String("version", version.Version), zap.String("addr", addr))

			if err := r.Run(addr); err != nil {
				logger.Error("failed to start server", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newUpgradeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Replace this binary with the latest release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer := ux.NewPrinter(os.Stdout, os.Stderr)
			err := upgrade.NewUpdater(upgrade.Options{Printer: printer}).Run(cmd.Context(), force)
			if err != nil {
				printer.Error("Upgrade failed: %v", err)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "reinstall even when already up to date")
	return cmd
}
