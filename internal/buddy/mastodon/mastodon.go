// Package mastodon publishes listings as Mastodon statuses.
package mastodon

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blacktop/findabuddy/internal/buddy"
	"github.com/blacktop/findabuddy/internal/logutil"
	mastodonapi "github.com/mattn/go-mastodon"
)

const (
	providerName   = "mastodon"
	requestTimeout = 30 * time.Second
)

// Config contains the settings needed to reach a Mastodon server.
type Config struct {
	Server       string
	AccessToken  string
	ClientID     string
	ClientSecret string
}

// Client implements buddy.Publisher for Mastodon.
type Client struct {
	client *mastodonapi.Client
	server string
}

// New constructs a Mastodon publisher.
func New(ctx context.Context, cfg Config) (*Client, error) {
	server := strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	if server == "" || strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, buddy.MissingConfigError{Provider: providerName, Variables: []string{"server", "access token"}}
	}

	mastodonClient := mastodonapi.NewClient(&mastodonapi.Config{
		Server:       server,
		AccessToken:  cfg.AccessToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	mastodonClient.Timeout = requestTimeout

	return &Client{client: mastodonClient, server: server}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// UploadMedia attaches the image to the account and returns the attachment ID.
func (c *Client) UploadMedia(ctx context.Context, media buddy.Media) (string, error) {
	attachment, err := c.client.UploadMediaFromMedia(ctx, &mastodonapi.Media{
		File:        bytes.NewReader(media.Data),
		Description: media.AltText,
	})
	if err != nil {
		return "", buddy.PlatformError{Provider: providerName, Op: "upload media", Err: err}
	}

	return string(attachment.ID), nil
}

// Publish posts a new status.
func (c *Client) Publish(ctx context.Context, draft buddy.Draft) (string, error) {
	var mediaIDs []mastodonapi.ID
	if draft.MediaID != "" {
		mediaIDs = []mastodonapi.ID{mastodonapi.ID(draft.MediaID)}
	}

	status, err := c.client.PostStatus(ctx, &mastodonapi.Toot{
		Status:   draft.Text,
		MediaIDs: mediaIDs,
	})
	if err != nil {
		return "", buddy.PlatformError{Provider: providerName, Op: "post status", Err: err}
	}
	logutil.Debugf("status posted: id=%s url=%s", status.ID, status.URL)

	return string(status.ID), nil
}

// PostURL links to the status on the configured server.
func (c *Client) PostURL(account, postID string) string {
	account = strings.TrimPrefix(strings.TrimSpace(account), "@")
	if account == "" || postID == "" {
		return ""
	}
	return fmt.Sprintf("%s/@%s/%s", c.server, account, postID)
}
