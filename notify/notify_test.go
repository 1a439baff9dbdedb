package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushoverNotifier_PostsForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = map[string]string{
			"token":   r.PostForm.Get("token"),
			"user":    r.PostForm.Get("user"),
			"title":   r.PostForm.Get("title"),
			"message": r.PostForm.Get("message"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPushoverNotifier("tok", "usr", func(o *PushoverOptions) {
		o.Endpoint = srv.URL
		o.HTTPClient = srv.Client()
	})
	require.NoError(t, p.Notify(context.Background(), Notification{Title: "Escalation", Message: "angry customer"}))
	assert.Equal(t, map[string]string{"token": "tok", "user": "usr", "title": "Escalation", "message": "angry customer"}, got)
}

func TestPushoverNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"status":0}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPushoverNotifier("tok", "usr", func(o *PushoverOptions) { o.Endpoint = srv.URL })
	err := p.Notify(context.Background(), Notification{Message: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestAsync_DeliversAndDrainsOnClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	next := NotifierFunc(func(_ context.Context, n Notification) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, n.Message)
		return nil
	})

	a := NewAsync(next)
	require.NoError(t, a.Notify(context.Background(), Notification{Message: "one"}))
	require.NoError(t, a.Notify(context.Background(), Notification{Message: "two"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))

	mu.Lock()
	assert.Equal(t, []string{"one", "two"}, seen)
	mu.Unlock()

	assert.ErrorIs(t, a.Notify(context.Background(), Notification{Message: "late"}), ErrClosed)
}

func TestAsync_DeliveryErrorsDoNotPropagate(t *testing.T) {
	a := NewAsync(NotifierFunc(func(context.Context, Notification) error { return errors.New("down") }))
	assert.NoError(t, a.Notify(context.Background(), Notification{Message: "x"}))
	require.NoError(t, a.Close(context.Background()))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), Notification{Message: "x"}))
}
