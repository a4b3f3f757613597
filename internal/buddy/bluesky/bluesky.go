// Package bluesky publishes listings as Bluesky posts.
package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blacktop/findabuddy/internal/buddy"
	"github.com/blacktop/findabuddy/internal/logutil"
	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const (
	providerName   = "bluesky"
	requestTimeout = 30 * time.Second

	// DefaultPDSURL is used when no personal data server is configured.
	DefaultPDSURL = "https://bsky.social"
)

// Config holds the account used to post.
type Config struct {
	Handle      string
	AppPassword string
	PDSURL      string
}

type pendingImage struct {
	blob *util.LexBlob
	alt  string
}

// Client implements buddy.Publisher for Bluesky. Blobs have no standalone
// ID, so the handle returned by UploadMedia refers to the most recent
// upload only.
type Client struct {
	client  *xrpc.Client
	uploads int
	pending map[string]pendingImage
}

// New logs in and returns a Bluesky publisher.
func New(ctx context.Context, cfg Config) (*Client, error) {
	pds := strings.TrimSpace(cfg.PDSURL)
	if pds == "" {
		pds = DefaultPDSURL
	}

	httpClient := &http.Client{Timeout: requestTimeout}
	userAgent := "findabuddy/1"
	xrpcClient := &xrpc.Client{
		Client:    httpClient,
		Host:      pds,
		UserAgent: &userAgent,
	}

	session, err := atproto.ServerCreateSession(ctx, xrpcClient, &atproto.ServerCreateSession_Input{
		Identifier: cfg.Handle,
		Password:   cfg.AppPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	xrpcClient.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	return &Client{client: xrpcClient, pending: map[string]pendingImage{}}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// UploadMedia stores the image as a blob. Any earlier unposted upload is
// forgotten.
func (c *Client) UploadMedia(ctx context.Context, media buddy.Media) (string, error) {
	resp, err := atproto.RepoUploadBlob(ctx, c.client, bytes.NewReader(media.Data))
	if err != nil {
		return "", buddy.PlatformError{Provider: providerName, Op: "upload blob", Err: err}
	}
	if resp.Blob == nil {
		return "", buddy.PlatformError{Provider: providerName, Op: "upload blob", Err: fmt.Errorf("empty response")}
	}

	c.uploads++
	handle := fmt.Sprintf("blob-%d", c.uploads)
	c.pending = map[string]pendingImage{handle: {blob: resp.Blob, alt: media.AltText}}
	logutil.Debugf("blob uploaded: handle=%s mime=%s size=%d", handle, resp.Blob.MimeType, resp.Blob.Size)

	return handle, nil
}

// Publish creates the post record and returns its record key.
func (c *Client) Publish(ctx context.Context, draft buddy.Draft) (string, error) {
	post := &bsky.FeedPost{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Text:      draft.Text,
	}

	if draft.MediaID != "" {
		img, ok := c.pending[draft.MediaID]
		if !ok {
			return "", buddy.PlatformError{Provider: providerName, Op: "create record", Err: fmt.Errorf("unknown media handle %q", draft.MediaID)}
		}
		delete(c.pending, draft.MediaID)
		post.Embed = &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{
				Images: []*bsky.EmbedImages_Image{
					{
						Alt:   img.alt,
						Image: img.blob,
					},
				},
			},
		}
	}

	out, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.client.Auth.Did,
		Record: &util.LexiconTypeDecoder{
			Val: post,
		},
	})
	if err != nil {
		return "", buddy.PlatformError{Provider: providerName, Op: "create record", Err: err}
	}
	logutil.Debugf("record created: uri=%s", out.Uri)

	return recordKey(out.Uri), nil
}

// PostURL links to the post in the Bluesky web app.
func (c *Client) PostURL(account, postID string) string {
	account = strings.TrimPrefix(strings.TrimSpace(account), "@")
	if account == "" || postID == "" {
		return ""
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", account, postID)
}

// recordKey returns the last segment of an at:// URI.
func recordKey(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
