package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/config"
	"github.com/hupe1980/agentrelay/logging"
)

type echoApp struct {
	seen []string
	err  error
}

func (e *echoApp) Chat(_ context.Context, msg string) (string, error) {
	e.seen = append(e.seen, msg)
	if e.err != nil {
		return "", e.err
	}
	return "echo: " + msg, nil
}

func TestChat_ReadsUntilExit(t *testing.T) {
	app := &echoApp{}
	var out strings.Builder

	err := chat(context.Background(), app, strings.NewReader("hello\n\n  second  \nexit\nignored\n"), &out, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "second"}, app.seen)
	assert.Equal(t, "echo: hello\necho: second\n", out.String())
}

func TestChat_PromptsWhenInteractive(t *testing.T) {
	var out strings.Builder
	require.NoError(t, chat(context.Background(), &echoApp{}, strings.NewReader("hi\n"), &out, true))
	assert.Equal(t, "> echo: hi\n> ", out.String())
}

func TestChat_ReportsErrorsAndContinues(t *testing.T) {
	app := &echoApp{err: errors.New("handoff failed")}
	var out strings.Builder

	require.NoError(t, chat(context.Background(), app, strings.NewReader("a\nb\n"), &out, false))
	assert.Len(t, app.seen, 2)
	assert.Contains(t, out.String(), "error: handoff failed")
}

func TestHandler_Chat(t *testing.T) {
	app := &echoApp{}
	h := newHandler(app, prometheus.NewRegistry(), logging.NoOpLogger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"Hola"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"echo: Hola"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_ChatErrorIsNotLeaked(t *testing.T) {
	h := newHandler(&echoApp{err: errors.New("handoff supervisor_handoff_tool: pager token abc123 rejected")},
		prometheus.NewRegistry(), logging.NoOpLogger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"x"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"the request could not be processed"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "abc123")
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "desk_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rec := httptest.NewRecorder()
	newHandler(&echoApp{}, reg, logging.NoOpLogger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "desk_test_total 1")
}

func TestNewProvider(t *testing.T) {
	p, err := newProvider(&config.Config{Provider: "mock", Model: "gpt-5.2", EscalationModel: "small"})
	require.NoError(t, err)

	m, err := p.Resolve("gpt-5.2")
	require.NoError(t, err)
	assert.Equal(t, "mock", m.Info().Provider)

	_, err = p.Resolve("small")
	require.NoError(t, err)

	_, err = p.Resolve("other")
	require.Error(t, err)

	_, err = newProvider(&config.Config{Provider: "bogus"})
	require.Error(t, err)
}
