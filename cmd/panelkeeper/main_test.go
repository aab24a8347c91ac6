package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"panelkeeper/internal/config"
	"panelkeeper/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearNotifyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "COLLECT_MESSAGES", "SLACK_WEBHOOK_URL", "PUSHGATEWAY_URL", "LOG_LEVEL", "CHROME_PATH"} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(config.NewViper())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeAccounts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`[{"username":"alice","password":"pw","panel":"panel1.example.net"}]`), 0o600))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "panelkeeper v"+version)
}

func TestRoot_MissingAccountListIsFatal(t *testing.T) {
	clearNotifyEnv(t)
	_, err := execute(t, "--accounts", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read account list")
}

func TestRoot_MalformedAccountListIsFatal(t *testing.T) {
	clearNotifyEnv(t)
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"username":`), 0o600))

	_, err := execute(t, "--accounts", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse account list")
}

func TestRoot_EmptyAccountListCompletes(t *testing.T) {
	clearNotifyEnv(t)
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	out, err := execute(t, "--accounts", path)
	require.NoError(t, err)
	assert.Equal(t, runner.CompletionLine+"\n", out)
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	clearNotifyEnv(t)
	_, err := execute(t, "--log-level", "loud", "version")
	require.Error(t, err)
}

func TestDoctor_Passes(t *testing.T) {
	clearNotifyEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456789:ABCDEFGHIJ")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("COLLECT_MESSAGES", "true")
	chrome := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(chrome, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("CHROME_PATH", chrome)

	out, err := execute(t, "doctor", "--accounts", writeAccounts(t))
	require.NoError(t, err, out)
	assert.Contains(t, out, "[PASS] Account list")
	assert.Contains(t, out, "(1 accounts)")
	assert.Contains(t, out, "1234****GHIJ")
	assert.NotContains(t, out, "123456789:ABCDEFGHIJ")
	assert.Contains(t, out, "buffered")
	assert.Contains(t, out, "0 failed")
}

func TestDoctor_ChromePathFlag(t *testing.T) {
	clearNotifyEnv(t)
	chrome := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(chrome, []byte("#!/bin/sh\n"), 0o755))

	out, err := execute(t, "doctor", "--accounts", writeAccounts(t), "--chrome-path", chrome)
	require.NoError(t, err, out)
	assert.Contains(t, out, "[PASS] Chrome")
	assert.Contains(t, out, chrome)
}

func TestDoctor_FailsOnBadAccountList(t *testing.T) {
	clearNotifyEnv(t)
	t.Setenv("CHROME_PATH", filepath.Join(t.TempDir(), "no-chrome"))

	out, err := execute(t, "doctor", "--accounts", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, out, "[FAIL] Account list")
	assert.Contains(t, out, "[FAIL] Chrome")
	assert.Contains(t, out, "[WARN] Telegram")
}

func TestBuildSinks(t *testing.T) {
	assert.Empty(t, buildSinks(config.RunConfig{}))
	assert.Empty(t, buildSinks(config.RunConfig{Telegram: config.TelegramConfig{BotToken: "x"}}))

	sinks := buildSinks(config.RunConfig{
		Telegram:        config.TelegramConfig{BotToken: "x", ChatID: "1"},
		SlackWebhookURL: "https://hooks.slack.com/services/T/B/X",
	})
	require.Len(t, sinks, 2)
	assert.Equal(t, "telegram", sinks[0].Name())
	assert.Equal(t, "slack", sinks[1].Name())
}

func TestFindChrome_ConfiguredDirectory(t *testing.T) {
	_, err := findChrome(t.TempDir())
	assert.Error(t, err)
}
