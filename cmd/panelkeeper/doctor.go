package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"panelkeeper/internal/config"
	"panelkeeper/internal/notify"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var chromeCandidates = []string{
	"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome",
}

func doctorCmd(v *viper.Viper) *cobra.Command {
	var ping bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the account list, notification settings and Chrome",
		Long: `Verifies that panelkeeper can run: the account list loads, notification
credentials are present, and a Chrome binary can be found. With --ping the
Telegram token is checked against the Bot API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "panelkeeper doctor v%s\n", version)
			fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			var passed, warned, failed int

			cfg, err := config.FromViper(v)
			if err != nil {
				printFail(out, "Config", err.Error())
				return fmt.Errorf("invalid configuration")
			}
			printPass(out, "Config", "valid")
			passed++

			// 1. Account list
			if accounts, err := config.LoadAccounts(cfg.AccountsFile); err != nil {
				printFail(out, "Account list", err.Error())
				failed++
			} else {
				printPass(out, "Account list", fmt.Sprintf("%s (%d accounts)", cfg.AccountsFile, len(accounts)))
				passed++
			}

			// 2. Telegram
			switch {
			case cfg.Telegram.Configured():
				detail := "token " + cfg.Sanitized().Telegram.BotToken + ", chat " + cfg.Telegram.ChatID
				if ping {
					ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
					tg := notify.NewTelegram(notify.TelegramConfig{
						Token:  cfg.Telegram.BotToken,
						ChatID: cfg.Telegram.ChatID,
						Logger: logger,
					})
					name, err := tg.Ping(ctx)
					cancel()
					if err != nil {
						printFail(out, "Telegram", err.Error())
						failed++
						break
					}
					detail += ", bot @" + name
				}
				printPass(out, "Telegram", detail)
				passed++
			case cfg.Telegram.BotToken != "" || cfg.Telegram.ChatID != "":
				printWarn(out, "Telegram", "only one of TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID is set; notifications disabled")
				warned++
			default:
				printWarn(out, "Telegram", "not configured; outcomes go to stdout only")
				warned++
			}

			// 3. Slack
			if cfg.SlackWebhookURL != "" {
				printPass(out, "Slack", cfg.Sanitized().SlackWebhookURL)
				passed++
			}

			// 4. Delivery mode
			if cfg.CollectMessages {
				printPass(out, "Delivery", "buffered, one summary at end of run")
			} else {
				printPass(out, "Delivery", "immediate, one message per account")
			}
			passed++

			// 5. Chrome
			if path, err := findChrome(cfg.ChromePath); err != nil {
				printFail(out, "Chrome", err.Error())
				failed++
			} else {
				printPass(out, "Chrome", path)
				passed++
			}

			// 6. Pushgateway
			if cfg.PushgatewayURL != "" {
				printPass(out, "Pushgateway", cfg.PushgatewayURL)
				passed++
			}

			fmt.Fprintf(out, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Fprintf(out, "Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ping, "ping", false, "verify the Telegram token with a getMe call")
	return cmd
}

// findChrome returns the configured Chrome binary, or the first known
// Chrome/Chromium name found on PATH.
func findChrome(configured string) (string, error) {
	if configured != "" {
		info, err := os.Stat(configured)
		if err != nil {
			return "", fmt.Errorf("configured chrome path: %w", err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("configured chrome path is a directory: %s", configured)
		}
		return configured, nil
	}
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome/Chromium binary on PATH (set CHROME_PATH)")
}

func printPass(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [PASS] %-14s %s\n", check, detail)
}

func printFail(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [FAIL] %-14s %s\n", check, detail)
}

func printWarn(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [WARN] %-14s %s\n", check, detail)
}
