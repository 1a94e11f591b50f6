package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscordSenderPostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	require.NoError(t, sender.Send(context.Background(), "restart storm", "cross_venue exited 6 times"))

	require.Equal(t, "atom-fleet", got["username"])
	require.Equal(t, "**restart storm**\ncross_venue exited 6 times", got["content"])
}

func TestDiscordSenderSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid webhook", http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	err := sender.Send(context.Background(), "t", "m")
	require.Error(t, err)
	require.Contains(t, err.Error(), "discord")
	require.Contains(t, err.Error(), "401")
}

func TestDiscordSenderClipsOversizedContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	long := strings.Repeat("x", 3*discordContentLimit)
	require.NoError(t, sender.Send(context.Background(), "t", long))
	require.Len(t, got["content"], discordContentLimit)
}

type memSender struct {
	name   string
	titles []string
	err    error
}

func (m *memSender) Send(_ context.Context, title, _ string) error {
	m.titles = append(m.titles, title)
	return m.err
}

func (m *memSender) Name() string { return m.name }

func TestNotifierFiltersByEventType(t *testing.T) {
	sender := &memSender{name: "mem"}
	n := New([]Sender{sender}, []string{EventRestartStorm}, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), EventScannerExit, "exit", "m"))
	require.Empty(t, sender.titles)

	require.NoError(t, n.Notify(context.Background(), EventRestartStorm, "storm", "m"))
	require.Equal(t, []string{"storm"}, sender.titles)
}

func TestNotifierDeliversPastFailedSender(t *testing.T) {
	bad := &memSender{name: "bad", err: errors.New("timeout")}
	good := &memSender{name: "good"}
	n := New([]Sender{bad, good}, nil, slog.New(slog.DiscardHandler))

	err := n.Notify(context.Background(), EventKillSwitch, "kill", "m")
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad")
	require.Equal(t, []string{"kill"}, good.titles)
}
