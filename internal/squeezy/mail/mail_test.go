package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	t.Parallel()

	msg, err := VerifyEmail("a@example.com", "Ann <admin>", "https://app.test/confirm-account?code=ABCD1234")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", msg.To)
	require.Contains(t, msg.Text, "https://app.test/confirm-account?code=ABCD1234")
	require.Contains(t, msg.HTML, "Ann &lt;admin&gt;")

	msg, err = PasswordReset("b@example.com", "Bob", "https://app.test/reset-password?code=X&exp=1")
	require.NoError(t, err)
	require.Equal(t, "Password reset request", msg.Subject)
	require.Contains(t, msg.HTML, "code=X&amp;exp=1")
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	id, err := LogSender{}.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = LogSender{}.Send(context.Background(), Message{})
	require.ErrorIs(t, err, ErrNoRecipient)
}

func TestMailgunSend(t *testing.T) {
	t.Parallel()

	var gotPath, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTo = r.FormValue("to")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<20260101.1@mg.example.com>","message":"Queued. Thank you."}`))
	}))
	t.Cleanup(srv.Close)

	m := NewMailgun("mg.example.com", "key-test", "Squeezy <no-reply@mg.example.com>")
	m.SetAPIBase(srv.URL)

	id, err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t", HTML: "<p>t</p>"})
	require.NoError(t, err)
	require.Equal(t, "<20260101.1@mg.example.com>", id)
	require.True(t, strings.HasSuffix(gotPath, "/mg.example.com/messages"), gotPath)
	require.Equal(t, "a@example.com", gotTo)
}

func TestMailgunSendFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	m := NewMailgun("mg.example.com", "bad", "no-reply@mg.example.com")
	m.SetAPIBase(srv.URL)

	_, err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"})
	require.Error(t, err)
}
