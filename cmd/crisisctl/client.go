package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// client talks to the per-user endpoints of the crisis service.
type client struct {
	http *resty.Client
	user string
}

func (c *client) init(apiURL, user string) {
	c.http = resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
	c.user = user
}

func (c *client) path(suffix string) string {
	return "/api/users/" + url.PathEscape(c.user) + suffix
}

// do sends body (if any) to the user-scoped path and returns the response
// body. A 204 yields nil data and no error.
func (c *client) do(ctx context.Context, method, suffix string, body any) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, c.path(suffix))
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return resp.Body(), nil
	case http.StatusNoContent:
		return nil, nil
	}
	return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
}

// emit pretty-prints a JSON response body; non-JSON bodies are written as-is.
func emit(out io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintln(out, buf.String())
	return err
}
