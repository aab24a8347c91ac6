package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"panelkeeper/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name string
	sent []string
	err  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, text string) error {
	s.sent = append(s.sent, text)
	return s.err
}

type countingObserver struct{ failures map[string]int }

func (o *countingObserver) ObserveNotifyFailure(sink string) {
	if o.failures == nil {
		o.failures = map[string]int{}
	}
	o.failures[sink]++
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_ImmediateMode(t *testing.T) {
	sink := &recordingSink{name: "telegram"}
	d := NewDispatcher(DispatcherConfig{Sinks: []domain.Sink{sink}, Logger: quietLogger()})

	d.Notify(context.Background(), "one")
	d.Notify(context.Background(), "two")
	d.FlushSummary(context.Background())

	assert.Equal(t, []string{"one", "two"}, sink.sent)
}

func TestDispatcher_CollectMode(t *testing.T) {
	sink := &recordingSink{name: "telegram"}
	buf := &Buffer{}
	d := NewDispatcher(DispatcherConfig{Sinks: []domain.Sink{sink}, Collect: true, Buffer: buf, Logger: quietLogger()})

	d.Notify(context.Background(), "one")
	d.Notify(context.Background(), "two")
	d.Notify(context.Background(), "three")
	assert.Empty(t, sink.sent, "no delivery before the summary")
	assert.Equal(t, 3, buf.Len())

	d.FlushSummary(context.Background())
	require.Len(t, sink.sent, 1)
	assert.Equal(t,
		"登录任务汇总报告:\n\none\n\n-------------------\n\ntwo\n\n-------------------\n\nthree",
		sink.sent[0])

	d.FlushSummary(context.Background())
	assert.Len(t, sink.sent, 1, "summary is sent at most once")
}

func TestDispatcher_EmptyBufferFlushIsNoop(t *testing.T) {
	sink := &recordingSink{name: "telegram"}
	d := NewDispatcher(DispatcherConfig{Sinks: []domain.Sink{sink}, Collect: true, Logger: quietLogger()})

	d.FlushSummary(context.Background())
	assert.Empty(t, sink.sent)
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	bad := &recordingSink{name: "telegram", err: errors.New("dial tcp: connection refused")}
	good := &recordingSink{name: "slack"}
	obs := &countingObserver{}
	d := NewDispatcher(DispatcherConfig{Sinks: []domain.Sink{bad, good}, Observer: obs, Logger: quietLogger()})

	d.Notify(context.Background(), "one")

	assert.Equal(t, []string{"one"}, good.sent)
	assert.Equal(t, 1, obs.failures["telegram"])
	assert.Zero(t, obs.failures["slack"])
}

func TestDispatcher_Enabled(t *testing.T) {
	assert.False(t, NewDispatcher(DispatcherConfig{}).Enabled())
	assert.True(t, NewDispatcher(DispatcherConfig{Sinks: []domain.Sink{&recordingSink{}}}).Enabled())
}

func TestBuffer_MessagesIsCopy(t *testing.T) {
	b := &Buffer{}
	b.Append("a")
	msgs := b.Messages()
	msgs[0] = "changed"
	assert.Equal(t, []string{"a"}, b.Messages())
}
