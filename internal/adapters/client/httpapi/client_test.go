package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/white6md/taskboard/internal/app"
	"github.com/white6md/taskboard/internal/domain"
)

func TestMoveTaskSendsRequest(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotHeader http.Header
		gotBody   map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"done"}`))
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL + "/api/", CSRFToken: "tok"})
	require.NoError(t, err)

	err = client.MoveTask(context.Background(), "p 1", "42", domain.StatusDone)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/projects/p%201/tasks/42/move", gotPath)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
	assert.Equal(t, "tok", gotHeader.Get(DefaultCSRFHeader))
	assert.Equal(t, map[string]string{"status": "done"}, gotBody)
}

func TestMoveTaskCustomCSRFHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-XSRF-Token")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL, CSRFToken: "abc", CSRFHeader: "X-XSRF-Token", Trace: true})
	require.NoError(t, err)
	require.NoError(t, client.MoveTask(context.Background(), "p1", "t1", domain.StatusTodo))
	assert.Equal(t, "abc", got)
}

func TestMoveTaskSendsEmptyCSRFHeaderWithoutToken(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Values(DefaultCSRFHeader)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, client.MoveTask(context.Background(), "p1", "t1", domain.StatusTodo))
	assert.Equal(t, []string{""}, got)
}

func TestMoveTaskAcceptsLargeSuccessBody(t *testing.T) {
	big := `{"task":{"id":"t1","notes":"` + strings.Repeat("a", int(2*maxResponseBodyBytes)) + `"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(big))
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, client.MoveTask(context.Background(), "p1", "t1", domain.StatusDone))
}

func TestScanJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "object", body: `{"status":"done","tags":[1,2]}`, ok: true},
		{name: "scalar", body: `true`, ok: true},
		{name: "empty", body: ``},
		{name: "truncated object", body: `{"status":`},
		{name: "unclosed array", body: `[1,2`},
		{name: "html", body: `<html>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := scanJSON(strings.NewReader(tc.body))
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestMoveTaskFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, want: app.ErrServerRejection, message: "status 500 (oops)"},
		{name: "bad status", status: http.StatusBadRequest, body: `{"error":"Invalid status"}`, want: app.ErrServerRejection, message: "(Invalid status)"},
		{name: "structured error", status: http.StatusForbidden, body: `{"error":{"code":"forbidden","message":"not a member"}}`, want: app.ErrServerRejection, message: "(forbidden: not a member)"},
		{name: "undecodable success body", status: http.StatusOK, body: `<html>`, want: app.ErrServerRejection, message: "decode response"},
		{name: "empty success body", status: http.StatusNoContent, want: app.ErrServerRejection},
		{name: "truncated success body", status: http.StatusOK, body: `{"status":"do`, want: app.ErrServerRejection, message: "decode response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := New(Options{BaseURL: srv.URL})
			require.NoError(t, err)
			err = client.MoveTask(context.Background(), "p1", "t1", domain.StatusDone)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
			assert.True(t, errors.Is(err, app.ErrMoveFailed))
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestMoveTaskTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	err = client.MoveTask(context.Background(), "p1", "t1", domain.StatusDone)
	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrTransportFailure)
	assert.ErrorIs(t, err, app.ErrMoveFailed)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "localhost:8080", "://bad"} {
		_, err := New(Options{BaseURL: raw})
		assert.ErrorIs(t, err, ErrInvalidBaseURL, "base url %q", raw)
	}
}
