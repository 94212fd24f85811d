// Package confluence is the external document-source collaborator: a thin
// client for the Confluence Cloud REST API plus descendant traversal.
// Transient failures (network errors, 5xx) retry here; the core pipeline
// never retries.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/gaurav-prasanna/confpipe/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "confpipe/1.0 (https://github.com/gaurav-prasanna/confpipe)"
	childPageLimit   = 50
	retryAttempts    = 3
	retryDelay       = 500 * time.Millisecond
)

// Config holds the connection settings for a Confluence site.
type Config struct {
	BaseURL  string // e.g. https://yoursite.atlassian.net/wiki
	Email    string
	APIToken string
}

// Client fetches pages over the REST API with basic auth.
type Client struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// NewClient creates a Client with a sensible timeout.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultTimeout},
		log:    log,
	}
}

// pageResponse mirrors the content endpoint's JSON.
type pageResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Space   struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int    `json:"number"`
		When   string `json:"when"`
	} `json:"version"`
	Ancestors []struct {
		Title string `json:"title"`
	} `json:"ancestors"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

// childrenResponse mirrors one page of the child/page endpoint's JSON.
type childrenResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
	Links struct {
		Next string `json:"next"`
	} `json:"_links"`
}

// FetchPage retrieves one page with its storage body, version, and
// ancestors expanded.
func (c *Client) FetchPage(ctx context.Context, id string) (*core.Page, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s", c.cfg.BaseURL, id)
	params := url.Values{"expand": {"body.storage,version,space,ancestors"}}

	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", id, err)
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding page %s: %w", id, err)
	}

	ancestors := make([]string, 0, len(resp.Ancestors))
	for _, a := range resp.Ancestors {
		ancestors = append(ancestors, a.Title)
	}

	return &core.Page{
		ID:        resp.ID,
		Title:     resp.Title,
		SpaceKey:  resp.Space.Key,
		Version:   strconv.Itoa(resp.Version.Number),
		UpdatedAt: resp.Version.When,
		Ancestors: ancestors,
		Body:      resp.Body.Storage.Value,
	}, nil
}

// ChildIDs lists the direct child page IDs, following pagination until the
// API stops advertising a next link.
func (c *Client) ChildIDs(ctx context.Context, id string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s/child/page", c.cfg.BaseURL, id)

	var children []string
	start := 0
	for {
		params := url.Values{
			"start": {strconv.Itoa(start)},
			"limit": {strconv.Itoa(childPageLimit)},
		}
		body, err := c.get(ctx, endpoint, params)
		if err != nil {
			return nil, fmt.Errorf("fetching children of %s: %w", id, err)
		}

		var resp childrenResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding children of %s: %w", id, err)
		}
		for _, r := range resp.Results {
			if r.ID != "" {
				children = append(children, r.ID)
			}
		}
		if resp.Links.Next == "" {
			break
		}
		start += childPageLimit
	}

	return children, nil
}

// get performs an authenticated GET, retrying transient failures. 4xx
// responses are not retried.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
			req.Header.Set("Accept", "application/json")
			req.Header.Set("User-Agent", defaultUserAgent)

			resp, err := c.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Unrecoverable(fmt.Errorf("status %d for %s", resp.StatusCode, endpoint))
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("status %d for %s", resp.StatusCode, endpoint)
			}

			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("retrying request", "endpoint", endpoint, "attempt", n+1, "err", err)
		}),
	)
	return body, err
}
