package translate

import (
	"context"
	"errors"
	"fmt"
	"html"

	"google.golang.org/api/option"
	translatev2 "google.golang.org/api/translate/v2"
)

// ErrNotConfigured is returned by every call of a client without an API key.
var ErrNotConfigured = errors.New("translation API key not configured")

// Client is a Google Cloud Translation (v2) client
type Client struct {
	service        *translatev2.Service
	sourceLanguage string
}

// NewClient creates a client translating from sourceLanguage. An empty apiKey
// yields an unconfigured client whose calls always fail.
func NewClient(ctx context.Context, apiKey, sourceLanguage string, opts ...option.ClientOption) (*Client, error) {
	c := &Client{sourceLanguage: sourceLanguage}
	if apiKey == "" {
		return c, nil
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := translatev2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create translate service: %w", err)
	}
	c.service = svc
	return c, nil
}

// IsConfigured returns true if the client has an API key
func (c *Client) IsConfigured() bool {
	return c.service != nil
}

// Translate translates text into the target language
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	call := c.service.Translations.List([]string{text}, target).Format("text").Context(ctx)
	if c.sourceLanguage != "" {
		call = call.Source(c.sourceLanguage)
	}

	resp, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", target, err)
	}
	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("translate to %s: empty response", target)
	}
	out := html.UnescapeString(resp.Translations[0].TranslatedText)
	if out == "" {
		return "", fmt.Errorf("translate to %s: empty translation", target)
	}
	return out, nil
}
