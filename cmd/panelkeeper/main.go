package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"panelkeeper/internal/browser"
	"panelkeeper/internal/config"
	"panelkeeper/internal/domain"
	"panelkeeper/internal/login"
	"panelkeeper/internal/metrics"
	"panelkeeper/internal/notify"
	"panelkeeper/internal/runner"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "0.1.0"
	logger  *slog.Logger
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := newRootCmd(config.NewViper()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "panelkeeper",
		Short: "Log in to every panel account once and report the result",
		Long: `panelkeeper walks the account list, logs in to each panel with a headless
browser, and reports success or failure on stdout and, when configured,
to Telegram and/or Slack.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, v)
		},
	}

	// Shared by the batch and doctor.
	flags := root.PersistentFlags()
	flags.StringP(config.KeyAccountsFile, "a", "", "account list (.json, .yaml) (env ACCOUNTS_FILE; default: accounts.json next to the binary)")
	flags.String(config.KeyLogLevel, "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.Bool(config.KeyHeadless, true, "run Chrome headless (env HEADLESS)")
	flags.Duration(config.KeyNavTimeout, config.DefaultNavTimeout, "timeout for each page operation (env NAV_TIMEOUT)")
	flags.String(config.KeyChromePath, "", "Chrome/Chromium binary (env CHROME_PATH)")
	flags.Bool(config.KeyInsecureTLS, false, "accept self-signed panel certificates (env INSECURE_TLS)")

	// Flags win over the environment, which wins over defaults.
	for _, key := range []string{
		config.KeyAccountsFile,
		config.KeyLogLevel,
		config.KeyHeadless,
		config.KeyNavTimeout,
		config.KeyChromePath,
		config.KeyInsecureTLS,
	} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(doctorCmd(v))
	root.AddCommand(versionCmd())
	return root
}

func setupLogger(v *viper.Viper) error {
	level, err := config.ParseLogLevel(strings.ToLower(strings.TrimSpace(v.GetString(config.KeyLogLevel))))
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "panelkeeper v%s\n", version)
		},
	}
}

func runBatch(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	// The one fatal error class: nothing is processed without a valid list.
	accounts, err := config.LoadAccounts(cfg.AccountsFile)
	if err != nil {
		logger.Error("cannot load account list", "err", err)
		return err
	}

	// Graceful shutdown on signals: the in-flight account finishes its
	// cleanup and no further account is started.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder *metrics.Recorder
	if cfg.PushgatewayURL != "" {
		recorder = metrics.NewRecorder()
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Sinks:    buildSinks(cfg),
		Collect:  cfg.CollectMessages,
		Buffer:   &notify.Buffer{},
		Observer: observerOrNil(recorder),
		Logger:   logger,
	})

	bridge := browser.NewBridge(browser.BridgeConfig{
		Headless:   cfg.Headless,
		Insecure:   cfg.InsecureTLS,
		ExecPath:   cfg.ChromePath,
		NavTimeout: cfg.NavTimeout,
		Logger:     logger,
	})
	driver := login.NewDriver(login.DriverConfig{
		Open:   login.BridgeOpener(bridge),
		Logger: logger,
	})

	r := runner.New(runner.Config{
		Checker:  driver,
		Notifier: dispatcher,
		Observer: runObserverOrNil(recorder),
		Out:      cmd.OutOrStdout(),
		ErrOut:   cmd.ErrOrStderr(),
		Logger:   logger,
	})
	r.Run(ctx, accounts)

	if recorder != nil {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := recorder.Push(pushCtx, cfg.PushgatewayURL, config.DefaultPushJob); err != nil {
			logger.Warn("metrics push failed", "err", err)
		}
	}
	return nil
}

// buildSinks returns the configured notification sinks. Telegram needs
// both the token and the chat id; otherwise it is skipped silently.
func buildSinks(cfg config.RunConfig) []domain.Sink {
	var sinks []domain.Sink
	if cfg.Telegram.Configured() {
		sinks = append(sinks, notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Telegram.BotToken,
			ChatID: cfg.Telegram.ChatID,
			Logger: logger,
		}))
	}
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, notify.NewSlack(notify.SlackConfig{WebhookURL: cfg.SlackWebhookURL}))
	}
	return sinks
}

// A nil *metrics.Recorder must not become a non-nil interface.
func observerOrNil(r *metrics.Recorder) notify.FailureObserver {
	if r == nil {
		return nil
	}
	return r
}

func runObserverOrNil(r *metrics.Recorder) runner.Observer {
	if r == nil {
		return nil
	}
	return r
}
