package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeServer records requests and answers with status and body.
func fakeServer(t *testing.T, status int, body string) (*httptest.Server, func() recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		last recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recorded{Method: r.Method, Path: r.URL.Path}
		if len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &rec.Body))
		}
		mu.Lock()
		last = rec
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() recorded {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func execute(t *testing.T, apiURL string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api", apiURL, "--user", "u1"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestUserFlagRequired(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"session", "show"})
	require.ErrorContains(t, cmd.Execute(), "--user required")
}

func TestMoodSendsOnlyGivenFields(t *testing.T) {
	srv, last := fakeServer(t, http.StatusAccepted, `{"assessment":null}`)
	out, err := execute(t, srv.URL, "mood", "--score", "2", "--emotions", "sad,tired")
	require.NoError(t, err)

	rec := last()
	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "/api/users/u1/moods", rec.Path)
	assert.Equal(t, 2.0, rec.Body["moodScore"])
	assert.NotContains(t, rec.Body, "stressLevel")
	assert.Equal(t, []any{"sad", "tired"}, rec.Body["emotions"])
	assert.Contains(t, out, `"assessment": null`)
}

func TestActivityRequiresType(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusAccepted, `{}`)
	_, err := execute(t, srv.URL, "activity", "--completed")
	require.ErrorContains(t, err, "--type or --category")

	_, err = execute(t, srv.URL, "activity", "--type", "walk", "--completed-at", "yesterday")
	require.ErrorContains(t, err, "RFC3339")
}

func TestSessionStart(t *testing.T) {
	srv, last := fakeServer(t, http.StatusCreated, `{"id":"s1","status":"waiting"}`)
	out, err := execute(t, srv.URL, "session", "start", "--severity", "high")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/u1/sessions", last().Path)
	assert.Equal(t, "high", last().Body["severity"])
	assert.Contains(t, out, `"status": "waiting"`)
}

func TestSessionMessageJoinsArgs(t *testing.T) {
	srv, last := fakeServer(t, http.StatusCreated, `{"id":"m1"}`)
	_, err := execute(t, srv.URL, "session", "message", "I", "need", "help")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/u1/sessions/active/messages", last().Path)
	assert.Equal(t, "I need help", last().Body["content"])
}

func TestSessionEndNoContent(t *testing.T) {
	srv, last := fakeServer(t, http.StatusNoContent, ``)
	out, err := execute(t, srv.URL, "session", "end")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/u1/sessions/active/end", last().Path)
	assert.Contains(t, out, "no active session")
}

func TestErrorStatusIsReported(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusNotFound, `{"error":"emergency contact not found"}`)
	_, err := execute(t, srv.URL, "session", "emergency", "ec-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")
	assert.Contains(t, err.Error(), "emergency contact not found")
}

func TestPlanSetFromFile(t *testing.T) {
	srv, last := fakeServer(t, http.StatusOK, `{"id":"p1"}`)
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"copingStrategies":["walk"]}`), 0o600))

	_, err := execute(t, srv.URL, "plan", "set", "--file", path)
	require.NoError(t, err)
	rec := last()
	assert.Equal(t, http.MethodPut, rec.Method)
	assert.Equal(t, "/api/users/u1/safety-plan", rec.Path)
	assert.Equal(t, []any{"walk"}, rec.Body["copingStrategies"])

	_, err = execute(t, srv.URL, "plan", "set", "--json", "[1,2]")
	require.ErrorContains(t, err, "JSON object")
}
