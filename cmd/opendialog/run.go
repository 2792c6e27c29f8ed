package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"opendialog/internal/bus"
	"opendialog/internal/channel"
	"opendialog/internal/command"
	"opendialog/internal/config"
	"opendialog/internal/dialog"
	"opendialog/internal/domain"
	"opendialog/internal/metrics"
	"opendialog/internal/nlp"
	"opendialog/internal/session"
	"opendialog/internal/skill"

	"github.com/spf13/cobra"
)

// engine bundles everything a running assistant needs.
type engine struct {
	loop     *dialog.Loop
	registry *skill.Registry
	store    domain.SessionStore
	sweep    func(ctx context.Context)
}

// buildEngine wires registry, store, dispatcher, parser, and fallback
// commands from the config.
func buildEngine(cfg *config.Config, turnBus domain.Bus) (*engine, error) {
	registry := skill.NewRegistry(logger)
	if err := skill.RegisterBuiltins(registry, skill.BuiltinConfig{
		MaxRetries:    cfg.Dialog.MaxRetries,
		RestartOnDeny: cfg.Dialog.RestartOnDeny,
		PromptDir:     cfg.Skills.PromptDir,
		Disabled:      cfg.Skills.Disabled,
		Logger:        logger,
	}); err != nil {
		return nil, fmt.Errorf("register skills: %w", err)
	}

	ttl := time.Duration(cfg.Session.IdleTTLMinutes) * time.Minute
	var (
		store domain.SessionStore
		sweep func(ctx context.Context)
	)
	switch cfg.Session.Backend {
	case "sqlite":
		sqlStore, err := session.NewSQLiteStore(cfg.Session.DBPath, ttl, logger)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		store = sqlStore
		sweep = func(ctx context.Context) {
			sweepLoop(ctx, cfg.Session.SweepIntervalSecs, func() {
				if _, err := sqlStore.SweepExpired(ctx); err != nil {
					logger.Warn("session sweep failed", "err", err)
				}
			})
		}
	default:
		memStore := session.NewMemoryStore(ttl, logger)
		store = memStore
		sweep = func(ctx context.Context) {
			if cfg.Session.SweepIntervalSecs > 0 {
				memStore.Sweep(ctx, time.Duration(cfg.Session.SweepIntervalSecs)*time.Second)
			}
		}
	}

	commands := command.NewRegistry(logger)
	command.RegisterBuiltins(commands, registry.List)

	dispatcher := dialog.NewDispatcher(registry, store, logger)
	loop := dialog.NewLoop(dialog.LoopConfig{
		Dispatcher: dispatcher,
		Parser:     nlp.NewParser(logger),
		Commands:   commands,
		Bus:        turnBus,
		Executor: func(skillName string, result domain.Context) {
			// Execution backends plug in here; logging the payload is
			// the shipped default.
			logger.Info("skill result ready", "skill", skillName, "fields", contextKeys(result))
		},
		Logger:      logger,
		Concurrency: cfg.Dialog.Concurrency,
	})

	return &engine{loop: loop, registry: registry, store: store, sweep: sweep}, nil
}

func sweepLoop(ctx context.Context, intervalSecs int, fn func()) {
	if intervalSecs <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(intervalSecs) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func contextKeys(c domain.Context) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return strings.Join(keys, ",")
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			turnBus := bus.New(64, logger)
			eng, err := buildEngine(cfg, turnBus)
			if err != nil {
				return err
			}
			defer eng.store.Close()
			defer turnBus.Close()

			go eng.loop.Run(ctx)
			go eng.sweep(ctx)

			cli := channel.NewCLI(channel.CLIConfig{Logger: logger})
			return cli.Start(ctx, turnBus)
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run all enabled channels until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			turnBus := bus.New(64, logger)
			eng, err := buildEngine(cfg, turnBus)
			if err != nil {
				return err
			}
			defer eng.store.Close()

			go eng.loop.Run(ctx)
			go eng.sweep(ctx)

			var tg *channel.Telegram
			if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
				tg = channel.NewTelegram(channel.TelegramConfig{
					Token:     cfg.Channels.Telegram.Token,
					AllowFrom: cfg.Channels.Telegram.AllowFrom,
					Logger:    logger,
				})
				go func() {
					if err := tg.Start(ctx, turnBus); err != nil {
						logger.Error("telegram channel error", "err", err)
					}
				}()
			} else {
				logger.Info("telegram channel disabled")
			}

			if cfg.Metrics.Enabled {
				mux := http.NewServeMux()
				mux.HandleFunc("/metrics", metrics.Default.Handler())
				srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
				go func() {
					logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Listen)
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics server error", "err", err)
					}
				}()
				defer srv.Close()
			}

			logger.Info("gateway started, press Ctrl+C to stop")
			<-ctx.Done()
			logger.Info("shutting down gateway")
			turnBus.Close()
			return nil
		},
	}
}

func skillsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List registered skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			turnBus := bus.New(1, logger)
			defer turnBus.Close()
			eng, err := buildEngine(cfg, turnBus)
			if err != nil {
				return err
			}
			defer eng.store.Close()

			for _, def := range eng.registry.List() {
				fmt.Printf("%-24s %s\n", def.Name, def.Description)
				fmt.Printf("%-24s triggers: %s; states: %d; required fields: %s\n",
					"", strings.Join(def.Trigger.Intents, ", "),
					len(def.Machine.States()), strings.Join(def.Required, ", "))
			}
			return nil
		},
	}
}
