// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Client is a REST client bound to one base URL. It shares the rate limits
// of the Fetcher it wraps.
type Client struct {
	BaseURL string
	fetcher *Fetcher
}

// NewClient returns a Client that resolves paths against baseURL.
func NewClient(f *Fetcher, baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), fetcher: f}
}

// URL joins path and query onto the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.BaseURL
	if p := strings.TrimLeft(path, "/"); p != "" {
		u += "/" + p
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// GetRaw issues a GET and returns the body.
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.fetcher.GetBytes(ctx, c.URL(path, query))
}

// GetJSON issues a GET and decodes a JSON body into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	data, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding JSON from %s: %w", path, err)
	}
	return nil
}

// GetXML issues a GET and decodes an XML body into v.
func (c *Client) GetXML(ctx context.Context, path string, query url.Values, v any) error {
	data, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding XML from %s: %w", path, err)
	}
	return nil
}

// PostForm issues a form POST and returns the body plus its Content-Type.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) ([]byte, string, error) {
	resp, err := c.fetcher.PostForm(ctx, c.URL(path, nil), form)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading response from %s: %w", path, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
