package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	got []Message
	err error
}

func (r *recordingNotifier) Send(ctx context.Context, msg Message) error {
	r.got = append(r.got, msg)
	return r.err
}

func TestDiscordWebhook_Send(t *testing.T) {
	var payload struct {
		Embeds []discordEmbed `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewDiscordWebhook(srv.URL, time.Second)
	err := hook.Send(context.Background(), Message{
		Title:  "📊 Hourly Health Report",
		Color:  ColorAmber,
		Fields: []Field{{Name: "Uptime", Value: "1h 2m", Inline: true}},
	})
	require.NoError(t, err)

	require.Len(t, payload.Embeds, 1)
	embed := payload.Embeds[0]
	assert.Equal(t, "📊 Hourly Health Report", embed.Title)
	assert.Equal(t, ColorAmber, embed.Color)
	assert.Equal(t, footerText, embed.Footer.Text)
	assert.NotEmpty(t, embed.Timestamp)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "1h 2m", embed.Fields[0].Value)
}

func TestDiscordWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordWebhook(srv.URL, time.Second).Send(context.Background(), Message{Title: "x"})
	assert.Error(t, err)
}

func TestDiscordWebhook_Unconfigured(t *testing.T) {
	hook := NewDiscordWebhook("", time.Second)
	assert.Nil(t, hook)
	assert.ErrorIs(t, hook.Send(context.Background(), Message{}), ErrNotConfigured)
}

func TestFanout(t *testing.T) {
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("boom")}

	f := NewFanout(ok, nil, failing)
	require.Len(t, f, 2)

	err := f.Send(context.Background(), Message{Title: "alert"})
	assert.Error(t, err)
	assert.Len(t, ok.got, 1, "a failing channel does not stop the others")
	assert.Len(t, failing.got, 1)

	assert.ErrorIs(t, NewFanout().Send(context.Background(), Message{}), ErrNotConfigured)
}
