// Package notify forwards login outcomes to messaging endpoints, either one
// message per account or as a single end-of-run summary.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"panelkeeper/internal/domain"
)

const (
	SummaryHeader    = "登录任务汇总报告:\n\n"
	SummarySeparator = "\n\n-------------------\n\n"
)

// FailureObserver is told about every delivery that failed.
type FailureObserver interface {
	ObserveNotifyFailure(sink string)
}

// Buffer holds the messages of a buffered run in arrival order.
// It is owned by the caller that drives the run and is not safe for
// concurrent use.
type Buffer struct {
	messages []string
}

func (b *Buffer) Append(text string) { b.messages = append(b.messages, text) }

func (b *Buffer) Len() int { return len(b.messages) }

// Messages returns a copy of the buffered messages.
func (b *Buffer) Messages() []string {
	return append([]string(nil), b.messages...)
}

// Summary renders the buffered messages under the fixed header.
func Summary(messages []string) string {
	return SummaryHeader + strings.Join(messages, SummarySeparator)
}

// Dispatcher sends outcome texts to every configured sink. Delivery is
// best-effort: failures are logged and never returned.
type Dispatcher struct {
	sinks    []domain.Sink
	collect  bool
	buf      *Buffer
	flushed  bool
	observer FailureObserver
	logger   *slog.Logger
}

type DispatcherConfig struct {
	Sinks    []domain.Sink
	Collect  bool    // buffer until FlushSummary instead of sending immediately
	Buffer   *Buffer // required when Collect is set; a fresh one is used if nil
	Observer FailureObserver
	Logger   *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Collect && cfg.Buffer == nil {
		cfg.Buffer = &Buffer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		sinks:    cfg.Sinks,
		collect:  cfg.Collect,
		buf:      cfg.Buffer,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
}

// Enabled reports whether any sink is configured.
func (d *Dispatcher) Enabled() bool { return len(d.sinks) > 0 }

// Collecting reports whether messages are buffered for a summary.
func (d *Dispatcher) Collecting() bool { return d.collect }

// Notify buffers text in collect mode, otherwise delivers it right away.
func (d *Dispatcher) Notify(ctx context.Context, text string) {
	if d.collect {
		d.buf.Append(text)
		return
	}
	d.deliver(ctx, text, "notification")
}

// FlushSummary sends all buffered messages as one summary. It does nothing
// when the buffer is empty, outside collect mode, or after the first call.
func (d *Dispatcher) FlushSummary(ctx context.Context) {
	if !d.collect || d.flushed {
		return
	}
	d.flushed = true
	if d.buf.Len() == 0 {
		return
	}
	d.deliver(ctx, Summary(d.buf.Messages()), "summary")
}

func (d *Dispatcher) deliver(ctx context.Context, text, kind string) {
	for _, s := range d.sinks {
		if err := s.Send(ctx, text); err != nil {
			d.logger.Error(kind+" delivery failed", "sink", s.Name(), "err", err)
			if d.observer != nil {
				d.observer.ObserveNotifyFailure(s.Name())
			}
			continue
		}
		d.logger.Info(kind+" sent", "sink", s.Name())
	}
}
