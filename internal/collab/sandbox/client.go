package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	errx "github.com/Finmate-core-poc/server/internal/core/error"
)

type Config struct {
	URL     string `split_words:"true"`
	Timeout int    `split_words:"true" default:"30"`
	// ExecTimeout bounds the code's own runtime inside the sandbox, seconds.
	ExecTimeout int `split_words:"true" default:"10"`
}

// Client runs untrusted snippets in an isolated execution service. The agent
// process never evaluates user code itself.
type Client struct {
	url         string
	execTimeout int
	http        *http.Client
}

var ErrNotConfigured = errx.New(nil, http.StatusServiceUnavailable, "sandbox execution is not configured")

// deniedFragments are rejected before the code ever leaves the process.
// The sandbox has its own isolation; this is a cheap first gate.
var deniedFragments = []string{
	"import os",
	"import sys",
	"import subprocess",
	"open(",
	"__import__",
	"exec(",
	"eval(",
	"compile(",
}

func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	execTimeout := cfg.ExecTimeout
	if execTimeout <= 0 {
		execTimeout = 10
	}
	return &Client{
		url:         strings.TrimRight(cfg.URL, "/"),
		execTimeout: execTimeout,
		http:        &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an execution service URL is set.
func (c *Client) Configured() bool {
	return c.url != ""
}

// Check rejects code containing denied fragments. Returns the offending
// fragment for the error message.
func Check(code string) (string, bool) {
	lower := strings.ToLower(code)
	for _, frag := range deniedFragments {
		if strings.Contains(lower, frag) {
			return frag, false
		}
	}
	return "", true
}

type executeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Timeout  int    `json:"timeout"`
}

type executeResponse struct {
	Output string `json:"output"`
	Error  string `json:"error"`
}

// Run executes a snippet and returns its stdout. A non-empty stderr from the
// sandbox comes back as a permanent-style error on the Error field of the
// wrapped errx.
func (c *Client) Run(ctx context.Context, code string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return "", errx.New(nil, http.StatusBadRequest, "no code provided")
	}
	if frag, ok := Check(code); !ok {
		return "", errx.New(fmt.Errorf("disallowed operation: %s", frag),
			http.StatusBadRequest, "code contains a disallowed operation")
	}

	payload, err := json.Marshal(executeRequest{
		Code:     code,
		Language: "python",
		Timeout:  c.execTimeout,
	})
	if err != nil {
		return "", errx.New(err, http.StatusInternalServerError, errx.SandboxErrorMessage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/execute", bytes.NewReader(payload))
	if err != nil {
		return "", errx.WrapUpstream(err, 0, errx.SandboxErrorMessage)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errx.WrapUpstream(err, 0, errx.SandboxErrorMessage)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errx.WrapUpstream(fmt.Errorf("status %d", resp.StatusCode), resp.StatusCode, errx.SandboxErrorMessage)
	}

	var body executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errx.WrapUpstream(err, 0, errx.SandboxErrorMessage)
	}

	if body.Error != "" {
		return "", errx.New(fmt.Errorf("execution error: %s", body.Error),
			http.StatusUnprocessableEntity, errx.SandboxErrorMessage)
	}
	return body.Output, nil
}
