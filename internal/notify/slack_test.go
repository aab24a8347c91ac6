package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackSend_PostsWebhook(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(SlackConfig{WebhookURL: srv.URL})
	require.NoError(t, s.Send(context.Background(), "账号 bob 登录失败"))
	assert.Equal(t, "账号 bob 登录失败", got["text"])
	assert.Equal(t, "slack", s.Name())
}

func TestSlackSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewSlack(SlackConfig{WebhookURL: srv.URL}).Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack webhook")
}

func TestSlackSend_StalledEndpointTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	s := NewSlack(SlackConfig{WebhookURL: srv.URL, Client: NewHTTPClient(200 * time.Millisecond)})

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "x") }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slack webhook")
	case <-time.After(5 * time.Second):
		t.Fatal("Send did not return against a stalled endpoint")
	}
}

func TestNewSlack_DefaultClientHasTimeout(t *testing.T) {
	s := NewSlack(SlackConfig{WebhookURL: "https://hooks.slack.com/services/T/B/X"})
	require.NotNil(t, s.client)
	assert.Positive(t, s.client.Timeout)
}
