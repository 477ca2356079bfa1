// Package npm talks to a running Nginx Proxy Manager instance over its
// REST API: token login, then authenticated reads of the proxy, redirect
// and stream host lists.
package npm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/MrSnakeDoc/proxydeck/internal/domain"
	"github.com/MrSnakeDoc/proxydeck/internal/utils"
)

type Client struct {
	baseURL  string
	email    string
	password string
	http     *retryablehttp.Client

	mu    sync.Mutex
	token string
}

func New(baseURL, email, password string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("npm client requires a base URL")
	}
	if email == "" || password == "" {
		return nil, fmt.Errorf("npm client requires credentials")
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.HTTPClient.Timeout = 10 * time.Second
	hc.Logger = nil

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		password: password,
		http:     hc,
	}, nil
}

// Fetch implements the cache's data-source capability: all three host
// kinds in one call.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	var records []domain.RawRecord

	proxies, err := c.getHostList(ctx, "/api/nginx/proxy-hosts")
	if err != nil {
		return nil, err
	}
	for _, item := range proxies {
		records = append(records, decodeRecord(domain.KindProxy, item))
	}

	redirects, err := c.getHostList(ctx, "/api/nginx/redirection-hosts")
	if err != nil {
		return nil, err
	}
	for _, item := range redirects {
		records = append(records, decodeRecord(domain.KindRedirect, item))
	}

	streams, err := c.getHostList(ctx, "/api/nginx/streams")
	if err != nil {
		return nil, err
	}
	for _, item := range streams {
		records = append(records, decodeRecord(domain.KindStream, item))
	}

	if records == nil {
		records = []domain.RawRecord{}
	}
	return records, nil
}

// AdminEditURL builds the deep link into the proxy-manager admin UI for a
// given record.
func (c *Client) AdminEditURL(kind domain.Kind, id string) string {
	switch kind {
	case domain.KindProxy:
		return c.baseURL + "/nginx/proxy/edit/" + id
	case domain.KindRedirect:
		return c.baseURL + "/nginx/redirection/edit/" + id
	case domain.KindStream:
		return c.baseURL + "/nginx/stream/edit/" + id
	default:
		return c.baseURL
	}
}

func (c *Client) login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"identity": c.email,
		"secret":   c.password,
	})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tokens", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to authenticate with npm: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to authenticate with npm: %s", resp.Status)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	for _, key := range []string{"token", "jwt", "access_token"} {
		if tok, ok := payload[key].(string); ok && tok != "" {
			c.mu.Lock()
			c.token = tok
			c.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("no token returned from npm")
}

// getHostList performs an authenticated GET with a bounded retry: one
// re-login when the token is rejected, then give up.
func (c *Client) getHostList(ctx context.Context, path string) ([]map[string]any, error) {
	for attempt := 0; attempt <= 1; attempt++ {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()

		if token == "" {
			if err := c.login(ctx); err != nil {
				return nil, err
			}
			c.mu.Lock()
			token = c.token
			c.mu.Unlock()
		}

		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("npm api request failed: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			utils.Close(resp.Body)
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			continue
		}

		if resp.StatusCode != http.StatusOK {
			utils.Close(resp.Body)
			return nil, fmt.Errorf("npm api request failed: %s", resp.Status)
		}

		data, err := io.ReadAll(resp.Body)
		utils.Close(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read npm response: %w", err)
		}

		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to decode npm response: %w", err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("npm api rejected token after refresh")
}

// decodeRecord lifts one API object into a RawRecord. Extraction is
// permissive: missing or oddly typed fields become zero values and the
// transformer's total coercion handles the rest.
func decodeRecord(kind domain.Kind, item map[string]any) domain.RawRecord {
	rec := domain.RawRecord{
		Kind:          kind,
		ID:            item["id"],
		Name:          getString(item, "name"),
		Remark:        getString(item, "remark"),
		Host:          getString(item, "host"),
		Path:          getString(item, "path"),
		Enabled:       item["enabled"],
		SSLForced:     item["ssl_forced"],
		DeletedAt:     item["deleted_at"],
		Domains:       item["domain_names"],
		ForwardScheme: getString(item, "forward_scheme"),
		ForwardHost:   getString(item, "forward_host", "forwarding_host"),
		ForwardPort:   getInt(item, "forward_port", "forwarding_port"),
		ForwardDomain: getString(item, "forward_domain_name"),
		IncomingPort:  getInt(item, "incoming_port", "port"),
	}

	if kind == domain.KindStream {
		rec.IncomingProtocol = getString(item, "incoming_protocol", "protocol")
		if rec.IncomingProtocol == "" {
			if domain.Boolify(item["tcp_forwarding"]) {
				rec.IncomingProtocol = "tcp"
			} else if domain.Boolify(item["udp_forwarding"]) {
				rec.IncomingProtocol = "udp"
			}
		}
	}
	return rec
}

func getString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := item[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func getInt(item map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := item[k].(type) {
		case float64:
			if v != 0 {
				return int(v)
			}
		case int:
			if v != 0 {
				return v
			}
		case string:
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n != 0 {
				return n
			}
		}
	}
	return 0
}
