package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formazing-backend/config"
	"formazing-backend/internal/model"
)

func newTestSender(t *testing.T, h http.HandlerFunc) *Sender {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger, _ := logtest.NewNullLogger()
	return NewSender(&config.TelegramConfig{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
		Timeout:           2 * time.Second,
	}, "123:abc", logger)
}

func TestSend(t *testing.T) {
	var got map[string]any
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	err := s.Send(context.Background(), model.Target{Key: "HR", ChatID: "-100200", TopicID: 12}, "<b>ciao</b>")
	require.NoError(t, err)
	assert.Equal(t, "-100200", got["chat_id"])
	assert.Equal(t, float64(12), got["message_thread_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "<b>ciao</b>", got["text"])
}

func TestSend_NoTopicOmitsThread(t *testing.T) {
	var got map[string]any
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, s.Send(context.Background(), model.Target{Key: "IT", ChatID: "-100"}, "x"))
	_, ok := got["message_thread_id"]
	assert.False(t, ok)
}

func TestSend_Failures(t *testing.T) {
	t.Run("api rejects", func(t *testing.T) {
		s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		})
		err := s.Send(context.Background(), model.Target{Key: "IT", ChatID: "-1"}, "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})

	t.Run("unreadable body", func(t *testing.T) {
		s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>bad gateway</html>"))
		})
		assert.Error(t, s.Send(context.Background(), model.Target{Key: "IT", ChatID: "-1"}, "x"))
	})

	t.Run("transport error hides token", func(t *testing.T) {
		logger, _ := logtest.NewNullLogger()
		s := NewSender(&config.TelegramConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 1000, Timeout: time.Second}, "123:abc", logger)
		err := s.Send(context.Background(), model.Target{Key: "IT", ChatID: "-1"}, "x")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "123:abc")
	})

	t.Run("missing chat id", func(t *testing.T) {
		s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		assert.Error(t, s.Send(context.Background(), model.Target{Key: "IT"}, "x"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, s.Send(ctx, model.Target{Key: "IT", ChatID: "-1"}, "x"))
	})
}

func TestTargets(t *testing.T) {
	targets := Targets(map[string]config.TelegramGroup{
		"main_group": {ChatID: "-1"},
		"HR":         {ChatID: "-2", TopicID: 12},
	})
	assert.Equal(t, model.Target{Key: "HR", ChatID: "-2", TopicID: 12}, targets["HR"])
	assert.Equal(t, "main_group", targets["main_group"].Key)
}
