package main

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/swearjar/internal/bot"
	"github.com/iamwavecut/swearjar/internal/config"
	"github.com/iamwavecut/swearjar/internal/db/sqlite"
	"github.com/iamwavecut/swearjar/internal/detector"
	handlers "github.com/iamwavecut/swearjar/internal/handlers/jar"
	"github.com/iamwavecut/swearjar/internal/infra"
	"github.com/iamwavecut/swearjar/internal/infrastructure/telegram"
	"github.com/iamwavecut/swearjar/internal/lifecycle"
	"github.com/iamwavecut/swearjar/internal/observability"
)

const maxPollPanics = 10

var errExecutableModified = errors.New("executable was modified")

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Telegram and start moderating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context())
		},
	}
}

func runBot(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.WithMessage(err, "cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.Init(ctx)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("cant shutdown tracing")
		}
	}()

	workDir, err := infra.GetWorkDir(cfg.Storage.DotPath)
	if err != nil {
		return err
	}
	dbClient, err := sqlite.NewSQLiteClient(ctx, workDir, cfg.Storage.DBFile)
	if err != nil {
		return errors.WithMessage(err, "cant open ledger")
	}

	d, err := loadDetector(workDir, cfg.Jar.WordsFile)
	if err != nil {
		_ = dbClient.Close()
		return err
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		_ = dbClient.Close()
		return errors.WithMessage(err, "cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}

	transport := telegram.NewTransport(botAPI, cfg.Transport)
	service := bot.NewService(transport, dbClient, d, cfg.Jar,
		bot.WithNameResolver(transport),
		bot.WithLanguage(cfg.DefaultLanguage),
	)

	runtime := lifecycle.NewRuntime()
	runtime.Register("service", service)
	runtime.Register("metrics", observability.NewServer(cfg.MetricsAddr))
	if err := runtime.Start(ctx); err != nil {
		_ = dbClient.Close()
		return err
	}
	defer func() {
		if err := runtime.Stop(context.Background()); err != nil {
			log.WithError(err).Error("cant stop runtime")
		}
	}()

	bot.RegisterUpdateHandler("jar", handlers.NewJar(service))
	processor := bot.NewUpdateProcessor(service, cfg.EnabledHandlers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return infra.RunRecoverable(gctx, maxPollPanics, "process_updates", processor.Run)
	})
	g.Go(func() error {
		if _, modified := <-infra.MonitorExecutable(gctx); modified {
			return errExecutableModified
		}
		return nil
	})

	err = g.Wait()
	switch {
	case errors.Is(err, context.Canceled):
		log.Info("shutting down")
		return nil
	case errors.Is(err, errExecutableModified):
		log.Warn("executable was modified, exiting")
		return nil
	}
	return err
}

// loadDetector reads the configured word list, falling back to the bundled
// one when the file does not exist.
func loadDetector(workDir, wordsFile string) (*detector.Detector, error) {
	d := detector.New()
	if path := infra.ResolvePath(workDir, wordsFile); path != "" {
		_, err := d.LoadWordsFile(path)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.WithField("path", path).Warn("word list not found, using bundled list")
	}
	if _, err := d.LoadDefaults(); err != nil {
		return nil, err
	}
	return d, nil
}
