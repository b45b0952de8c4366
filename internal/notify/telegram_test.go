package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTelegramSend(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg, err := NewTelegram("token123", "chat42", WithBaseURL(srv.URL))
	require.NoError(t, err)

	require.NoError(t, tg.Send(context.Background(), "start scraping"))
	require.Equal(t, "/bottoken123/sendMessage", gotPath)
	require.Equal(t, "chat42", gotBody["chat_id"])
	require.Equal(t, "start scraping", gotBody["text"])
}

func TestTelegramSendNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusForbidden)
	}))
	defer srv.Close()

	tg, err := NewTelegram("token123", "chat42", WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = tg.Send(context.Background(), "msg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewTelegram("", "chat")
	require.Error(t, err)
	_, err = NewTelegram("token", "")
	require.Error(t, err)
}
