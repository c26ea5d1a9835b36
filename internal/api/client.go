// Package api is the HTTP boundary to the Kuttalk service. Durable state
// changes (membership, room creation) always go through here; the socket
// only multiplexes live events.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"kuttalk/internal/utils"
)

var (
	ErrUnauthorized = utils.NewKuttalkError("unauthorized")
	ErrConflict     = utils.NewKuttalkError("conflict")
)

// SessionCookie is the cookie name the service issues on login. A session
// restored from disk is mirrored back into the jar under this name.
const SessionCookie = "sid"

type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

func NewClient(base string, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		base: u,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		log: log,
	}, nil
}

// SetSessionToken installs a previously stored session token as the
// credential cookie, so a restored session authenticates without a fresh
// login.
func (c *Client) SetSessionToken(sid string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: SessionCookie, Value: sid}})
}

// do runs one JSON round-trip. in may be nil for bodiless requests, out may
// be nil when the response body is irrelevant. Status classes map onto the
// package sentinels.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode >= 400:
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, errBody.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
