// Package netutil contains the HTTP helpers shared by the quote adapters.
package netutil

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/pricebook/date"
	"github.com/etnz/pricebook/logger"
	"go.uber.org/zap"
)

// UserAgent is sent with every request; some providers reject the Go default.
const UserAgent = "Mozilla/5.0 (compatible; pricebook/1.0)"

// DiskCache implements a disk cache for HTTP responses with a daily expiry: the key includes
// the current day, so yesterday's entries are never hit.
type DiskCache struct {
	Base http.RoundTripper
	Dir  string // defaults to os.TempDir()
}

func (c *DiskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := fmt.Sprintf("%s %s %s", date.Today(), req.Method, req.URL.String())
	key = fmt.Sprintf("pricebook-%x", sha1.Sum([]byte(key)))

	if cached, err := c.get(key, req); err == nil {
		return cached, nil
	}

	base := c.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	logger.L().Debug("http.fetched",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
	)
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		logger.L().Debug("http.cache_write_failed", zap.Error(err))
	}
	return resp, nil
}

func (c *DiskCache) dir() string {
	if c.Dir == "" {
		return os.TempDir()
	}
	return c.Dir
}

// get retrieves a cached response from disk.
func (c *DiskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.dir(), key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores a response to disk. DumpResponse restores resp.Body so the caller can still read it.
func (c *DiskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir(), key), content, 0o600)
}

// userAgent sets UserAgent on requests that carry none, so that clients built outside Get
// (finance-go) identify themselves the same way.
type userAgent struct {
	Base http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	base := u.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewClient returns a copy of client that always sends UserAgent, cached daily on disk when
// cache is true. client itself is not modified.
func NewClient(client *http.Client, cache bool) *http.Client {
	if client == nil {
		client = new(http.Client)
	}
	c := *client
	transport := client.Transport
	if cache {
		transport = &DiskCache{Base: transport}
	}
	c.Transport = &userAgent{Base: transport}
	return &c
}

// Get performs an HTTP GET and returns the body. Any non 200 status is an error.
func Get(ctx context.Context, client *http.Client, addr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// GetJSON performs an HTTP GET request and unmarshals the JSON response into data.
func GetJSON(ctx context.Context, client *http.Client, addr string, data any) error {
	body, err := Get(ctx, client, addr)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, data)
}
