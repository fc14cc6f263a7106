// Package library reads the community device-type library from GitHub and
// turns it into import candidates and inventory rows.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/time/rate"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

const (
	DefaultAPIURL = "https://api.github.com"
	DefaultRawURL = "https://raw.githubusercontent.com"
	userAgent     = "welcome-wizard"
)

// ErrFileNotFound is returned by FetchFile on a 404.
var ErrFileNotFound = errors.New("file not found in repository")

type ClientConfig struct {
	APIURL            string
	RawURL            string
	Token             string
	Proxy             string
	RequestsPerSecond float64
	RetryMax          int
	RetryWaitMin      time.Duration
}

type Client struct {
	http    *retryablehttp.Client
	apiURL  string
	rawURL  string
	token   string
	limiter *rate.Limiter
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = DefaultRawURL
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}

	proxyFunc := httpproxy.FromEnvironment().ProxyFunc()
	if cfg.Proxy != "" {
		if _, err := url.Parse(cfg.Proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		proxyFunc = (&httpproxy.Config{HTTPProxy: cfg.Proxy, HTTPSProxy: cfg.Proxy}).ProxyFunc()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = leveledLogger{}
	retryClient.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = cfg.RetryWaitMin
		retryClient.RetryWaitMax = 10 * cfg.RetryWaitMin
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(r *http.Request) (*url.URL, error) { return proxyFunc(r.URL) }
	retryClient.HTTPClient.Transport = transport
	retryClient.HTTPClient.Timeout = 60 * time.Second

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		http:    retryClient,
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		rawURL:  strings.TrimRight(cfg.RawURL, "/"),
		token:   cfg.Token,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func (c *Client) get(ctx context.Context, u string, accept string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// ListTree returns every file path on branch of the repository "owner/name".
func (c *Client) ListTree(ctx context.Context, repoPath, branch string) ([]string, error) {
	u := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=1", c.apiURL, repoPath, url.PathEscape(branch))
	body, status, err := c.get(ctx, u, "application/vnd.github+json")
	if err != nil {
		return nil, fmt.Errorf("list tree of %s: %w", repoPath, err)
	}
	if status != http.StatusOK {
		msg := gjson.GetBytes(body, "message").String()
		return nil, fmt.Errorf("list tree of %s: unexpected status %d: %s", repoPath, status, msg)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("list tree of %s: response is not JSON", repoPath)
	}
	if gjson.GetBytes(body, "truncated").Bool() {
		utils.Log.WithField("repository", repoPath).Warn("Repository tree listing was truncated, some device types may be missing")
	}

	var paths []string
	gjson.GetBytes(body, `tree.#(type=="blob")#.path`).ForEach(func(_, v gjson.Result) bool {
		paths = append(paths, v.String())
		return true
	})
	return paths, nil
}

// FetchFile downloads the raw content of path on branch.
func (c *Client) FetchFile(ctx context.Context, repoPath, branch, path string) ([]byte, error) {
	escaped := make([]string, 0, strings.Count(path, "/")+1)
	for _, seg := range strings.Split(path, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	u := fmt.Sprintf("%s/%s/%s/%s", c.rawURL, repoPath, url.PathEscape(branch), strings.Join(escaped, "/"))
	body, status, err := c.get(ctx, u, "")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", path, ErrFileNotFound)
	}
	return nil, fmt.Errorf("fetch %s: unexpected status %d", path, status)
}

// githubPath checks that the remote is hosted on GitHub and returns its "owner/name".
func githubPath(repo *storage.GitRepository) (string, error) {
	domain, ok := storage.RemoteRootDomain(repo.RemoteURL)
	if !ok || domain != "github.com" {
		return "", fmt.Errorf("repository %s: remote %q is not hosted on github.com", repo.Slug, repo.RemoteURL)
	}
	p, ok := storage.RepositoryPath(repo.RemoteURL)
	if !ok {
		return "", fmt.Errorf("repository %s: cannot read owner and name from %q", repo.Slug, repo.RemoteURL)
	}
	return p, nil
}

// leveledLogger routes retryablehttp logs to the shared logrus logger.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { utils.Log.WithFields(fields(kv)).Error(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { utils.Log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { utils.Log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { utils.Log.WithFields(fields(kv)).Warn(msg) }

func fields(kv []interface{}) map[string]interface{} {
	f := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
