// Package runner drives a whole batch: every account, one at a time,
// through the login driver, with outcomes forwarded to the notifier.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"panelkeeper/internal/domain"
)

// CompletionLine is printed once after the last account.
const CompletionLine = "所有账号登录完成！"

// Notifier is the notification side of a run.
type Notifier interface {
	Enabled() bool
	Collecting() bool
	Notify(ctx context.Context, text string)
	FlushSummary(ctx context.Context)
}

// Observer receives every outcome and the run timing. *metrics.Recorder
// implements it.
type Observer interface {
	ObserveOutcome(o domain.Outcome)
	ObserveRun(started, finished time.Time)
}

// Report summarizes a finished run.
type Report struct {
	Outcomes    []domain.Outcome
	Succeeded   int
	AuthFailed  int
	Errored     int
	Interrupted bool // context cancelled before every account was processed
	Started     time.Time
	Finished    time.Time
}

func (r *Report) add(o domain.Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Kind {
	case domain.OutcomeSuccess:
		r.Succeeded++
	case domain.OutcomeAuthFailure:
		r.AuthFailed++
	default:
		r.Errored++
	}
}

type Runner struct {
	checker  domain.Checker
	notifier Notifier
	observer Observer
	out      io.Writer
	errOut   io.Writer
	logger   *slog.Logger
}

type Config struct {
	Checker  domain.Checker
	Notifier Notifier  // optional
	Observer Observer  // optional
	Out      io.Writer // success lines and the completion line
	ErrOut   io.Writer // auth-failure and error lines
	Logger   *slog.Logger
}

func New(cfg Config) *Runner {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.ErrOut == nil {
		cfg.ErrOut = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		checker:  cfg.Checker,
		notifier: cfg.Notifier,
		observer: cfg.Observer,
		out:      cfg.Out,
		errOut:   cfg.ErrOut,
		logger:   cfg.Logger,
	}
}

// Run processes accounts in order. A failed account never stops the run;
// only cancellation of ctx does, and then before the next account starts.
func (r *Runner) Run(ctx context.Context, accounts []domain.Account) Report {
	report := Report{Started: time.Now()}
	notify := r.notifier != nil && r.notifier.Enabled()

	r.logger.Info("run started", "accounts", len(accounts), "notify", notify,
		"collect", notify && r.notifier.Collecting())

	for i, acct := range accounts {
		if ctx.Err() != nil {
			r.logger.Warn("run interrupted", "processed", i, "remaining", len(accounts)-i)
			report.Interrupted = true
			break
		}

		r.logger.Debug("checking account", "index", i, "username", acct.Username, "panel", acct.Panel)
		outcome := r.checker.Check(ctx, acct)
		report.add(outcome)

		text := outcome.Text()
		fmt.Fprintln(r.lineWriter(outcome), text)
		if r.observer != nil {
			r.observer.ObserveOutcome(outcome)
		}
		if notify {
			r.notifier.Notify(ctx, text)
		}
	}

	if notify && r.notifier.Collecting() {
		// Deliver the summary even when interrupted; the buffer holds
		// whatever was processed.
		r.notifier.FlushSummary(context.WithoutCancel(ctx))
	}

	report.Finished = time.Now()
	if r.observer != nil {
		r.observer.ObserveRun(report.Started, report.Finished)
	}

	fmt.Fprintln(r.out, CompletionLine)
	r.logger.Info("run finished",
		"success", report.Succeeded,
		"auth_failure", report.AuthFailed,
		"error", report.Errored,
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond),
	)
	return report
}

func (r *Runner) lineWriter(o domain.Outcome) io.Writer {
	if o.Kind == domain.OutcomeSuccess {
		return r.out
	}
	return r.errOut
}
