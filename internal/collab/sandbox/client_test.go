package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Finmate-core-poc/server/internal/core/error"
)

func TestRunNotConfigured(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Run(context.Background(), "print(1)")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCheckDeniedFragments(t *testing.T) {
	tests := []struct {
		name string
		code string
		ok   bool
	}{
		{name: "plain arithmetic", code: "print(100 * 1.08)", ok: true},
		{name: "os import", code: "import os\nprint(os.getcwd())", ok: false},
		{name: "case insensitive", code: "IMPORT OS", ok: false},
		{name: "eval call", code: "eval('1+1')", ok: false},
		{name: "file open", code: "open('/etc/passwd')", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Check(tt.code)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRunSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/execute", r.URL.Path)
		var req executeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "python", req.Language)
		assert.Equal(t, 10, req.Timeout)
		fmt.Fprint(w, `{"output":"600\n","error":""}`)
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL})
	out, err := client.Run(context.Background(), "print(sum([100, 200, 300]))")
	require.NoError(t, err)
	assert.Equal(t, "600\n", out)
}

func TestRunExecutionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output":"","error":"NameError: name 'foo' is not defined"}`)
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL})
	_, err := client.Run(context.Background(), "print(foo)")
	require.Error(t, err)
	var appErr *errx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
}

func TestRunDeniedCode(t *testing.T) {
	client := NewClient(Config{URL: "http://localhost:1"})
	_, err := client.Run(context.Background(), "import subprocess")
	var appErr *errx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestRunEmptyCode(t *testing.T) {
	client := NewClient(Config{URL: "http://localhost:1"})
	_, err := client.Run(context.Background(), "   ")
	var appErr *errx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}
