// Package twitter publishes listings to X (Twitter) through gotwi.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/findabuddy/internal/buddy"
	"github.com/blacktop/findabuddy/internal/logutil"
	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/media/upload"
	uploadtypes "github.com/michimani/gotwi/media/upload/types"
	"github.com/michimani/gotwi/resources"
	"github.com/michimani/gotwi/tweet/managetweet"
	managetweettypes "github.com/michimani/gotwi/tweet/managetweet/types"
)

const (
	providerName = "twitter"

	metadataEndpoint = "https://upload.twitter.com/1.1/media/metadata/create.json"
	statusURLFormat  = "https://twitter.com/%s/status/%s"
)

var httpTimeout = 30 * time.Second

// Config captures the credentials required for OAuth 1.0a user-context requests.
type Config struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Client implements buddy.Publisher for X.
type Client struct {
	api *gotwi.Client
}

// New constructs an X publisher using gotwi and OAuth 1.0a credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := &http.Client{Timeout: httpTimeout}

	client, err := gotwi.NewClient(&gotwi.NewClientInput{
		HTTPClient:           httpClient,
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		OAuthToken:           cfg.AccessToken,
		OAuthTokenSecret:     cfg.AccessSecret,
		APIKey:               cfg.APIKey,
		APIKeySecret:         cfg.APISecret,
		Debug:                logutil.Verbose(),
	})
	if err != nil {
		return nil, fmt.Errorf("create X client: %w", err)
	}

	if !client.IsReady() {
		return nil, fmt.Errorf("twitter client not ready")
	}

	return &Client{api: client}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return providerName }

// PostURL links to the tweet on the given account. It is empty when either
// part is unknown.
func (c *Client) PostURL(account, postID string) string {
	account = strings.TrimPrefix(strings.TrimSpace(account), "@")
	if account == "" || postID == "" {
		return ""
	}
	return fmt.Sprintf(statusURLFormat, account, postID)
}

// Publish creates the tweet and returns its ID.
func (c *Client) Publish(ctx context.Context, draft buddy.Draft) (string, error) {
	input := &managetweettypes.CreateInput{
		Text: gotwi.String(draft.Text),
	}
	if draft.MediaID != "" {
		input.Media = &managetweettypes.CreateInputMedia{MediaIDs: []string{draft.MediaID}}
	}

	logutil.Debugf("posting tweet: has_media=%t", draft.MediaID != "")
	out, err := managetweet.Create(ctx, c.api, input)
	if err != nil {
		return "", buddy.PlatformError{Provider: providerName, Op: "post tweet", Err: unwrapGotwiError(err)}
	}
	tweetID := gotwi.StringValue(out.Data.ID)
	if tweetID == "" {
		return "", buddy.PlatformError{Provider: providerName, Op: "post tweet", Err: errors.New("response has no tweet id")}
	}
	logutil.Debugf("tweet posted: id=%s", tweetID)

	return tweetID, nil
}

// UploadMedia sends the image through the chunked media upload flow and
// returns the media ID.
func (c *Client) UploadMedia(ctx context.Context, media buddy.Media) (string, error) {
	mediaID, err := c.upload(ctx, media)
	if err != nil {
		return "", buddy.PlatformError{Provider: providerName, Op: "upload media", Err: err}
	}
	return mediaID, nil
}

func (c *Client) upload(ctx context.Context, media buddy.Media) (string, error) {
	mediaType, category, err := resolveMediaType(media.Filename, media.Data)
	if err != nil {
		return "", err
	}

	logutil.Debugf("initialize upload: media_type=%s bytes=%d", mediaType, len(media.Data))
	initRes, err := upload.Initialize(ctx, c.api, &uploadtypes.InitializeInput{
		MediaType:     mediaType,
		TotalBytes:    len(media.Data),
		MediaCategory: category,
	})
	if err != nil {
		return "", fmt.Errorf("initialize upload: %w", unwrapGotwiError(err))
	}
	if err := partialError(initRes.Errors); err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}

	mediaID := initRes.Data.MediaID

	appendIn := &uploadtypes.AppendInput{
		MediaID:      mediaID,
		Media:        bytes.NewReader(media.Data),
		SegmentIndex: 0,
	}
	appendIn.GenerateBoundary()

	appendRes, err := upload.Append(ctx, c.api, appendIn)
	if err != nil {
		return "", fmt.Errorf("append upload: %w", unwrapGotwiError(err))
	}
	if err := partialError(appendRes.Errors); err != nil {
		return "", fmt.Errorf("append upload: %w", err)
	}

	finalizeRes, err := upload.Finalize(ctx, c.api, &uploadtypes.FinalizeInput{MediaID: mediaID})
	if err != nil {
		return "", fmt.Errorf("finalize upload: %w", unwrapGotwiError(err))
	}
	if err := partialError(finalizeRes.Errors); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	info := finalizeRes.Data.ProcessingInfo
	logutil.Debugf("finalize state=%s media_id=%s", info.State, mediaID)
	wait, err := processingWait(info)
	if err != nil {
		return "", err
	}
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if alt := strings.TrimSpace(media.AltText); alt != "" {
		if err := c.setAltText(ctx, mediaID, alt); err != nil {
			logutil.Warnf("alt text not set for media %s: %v", mediaID, err)
		}
	}

	return mediaID, nil
}

func (c *Client) setAltText(ctx context.Context, mediaID, altText string) error {
	params := &metadataParameters{
		mediaID: mediaID,
		altText: altText,
	}

	ctx = context.WithValue(ctx, "Content-Type", "application/json;charset=UTF-8")

	if err := c.api.CallAPI(ctx, metadataEndpoint, http.MethodPost, params, &metadataResponse{}); err != nil {
		return fmt.Errorf("set alt text: %w", unwrapGotwiError(err))
	}
	logutil.Debugf("alt text set: media_id=%s", mediaID)

	return nil
}

// processingWait returns how long to wait before using the media. gotwi has
// no status call, so there is a single wait and no re-check. If the media is
// still processing after that, creating the tweet fails and the finder starts
// a fresh attempt with a new upload.
func processingWait(info resources.ProcessingInfo) (time.Duration, error) {
	switch info.State {
	case "", resources.ProcessingInfoStateSucceeded:
		return 0, nil
	case resources.ProcessingInfoStateInProgress, resources.ProcessingInfoStatePending:
		return time.Duration(info.CheckAfterSecs) * time.Second, nil
	default:
		return 0, fmt.Errorf("media processing failed: state=%s", info.State)
	}
}

func resolveMediaType(name string, data []byte) (uploadtypes.MediaType, uploadtypes.MediaCategory, error) {
	// Sniff first: listing photos are always named buddy.jpg, whatever the
	// shelter actually uploaded.
	detected := http.DetectContentType(data)
	switch {
	case strings.Contains(detected, "jpeg"):
		return uploadtypes.MediaTypeJPEG, uploadtypes.MediaCategoryTweetImage, nil
	case strings.Contains(detected, "png"):
		return uploadtypes.MediaTypePNG, uploadtypes.MediaCategoryTweetImage, nil
	case strings.Contains(detected, "gif"):
		return uploadtypes.MediaTypeGIF, uploadtypes.MediaCategoryTweetGIF, nil
	case strings.Contains(detected, "webp"):
		return uploadtypes.MediaTypeWebP, uploadtypes.MediaCategoryTweetImage, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return uploadtypes.MediaTypeJPEG, uploadtypes.MediaCategoryTweetImage, nil
	case ".png":
		return uploadtypes.MediaTypePNG, uploadtypes.MediaCategoryTweetImage, nil
	case ".gif":
		return uploadtypes.MediaTypeGIF, uploadtypes.MediaCategoryTweetGIF, nil
	case ".webp":
		return uploadtypes.MediaTypeWebP, uploadtypes.MediaCategoryTweetImage, nil
	}

	return "", "", fmt.Errorf("unsupported image type for %q (%s)", name, detected)
}

func partialError(partials []resources.PartialError) error {
	if len(partials) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(partials))
	for _, pe := range partials {
		switch {
		case pe.Detail != nil && *pe.Detail != "":
			msgs = append(msgs, *pe.Detail)
		case pe.Title != nil && *pe.Title != "":
			msgs = append(msgs, *pe.Title)
		case pe.ResourceType != nil:
			msgs = append(msgs, fmt.Sprintf("%s", *pe.ResourceType))
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "unknown error")
	}
	return errors.New(strings.Join(msgs, "; "))
}

func unwrapGotwiError(err error) error {
	var gwErr *gotwi.GotwiError
	if errors.As(err, &gwErr) && gwErr != nil {
		return errors.New(summarizeGotwiError(gwErr))
	}
	return err
}

func summarizeGotwiError(err *gotwi.GotwiError) string {
	if err == nil {
		return "unknown X API error"
	}

	parts := make([]string, 0, 4)
	if err.Title != "" {
		parts = append(parts, err.Title)
	}
	if err.Detail != "" {
		parts = append(parts, err.Detail)
	}
	for _, apiErr := range err.APIErrors {
		if apiErr.Message != "" {
			parts = append(parts, apiErr.Message)
		}
	}
	if len(parts) == 0 {
		if msg := err.Error(); msg != "" {
			parts = append(parts, msg)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "X API request failed")
	}

	return strings.Join(parts, "; ")
}

type metadataParameters struct {
	mediaID     string
	altText     string
	accessToken string
}

func (p *metadataParameters) SetAccessToken(token string) {
	p.accessToken = token
}

func (p *metadataParameters) AccessToken() string {
	return p.accessToken
}

func (p *metadataParameters) ResolveEndpoint(endpointBase string) string {
	return endpointBase
}

func (p *metadataParameters) Body() (io.Reader, error) {
	body := struct {
		MediaID string `json:"media_id"`
		AltText struct {
			Text string `json:"text"`
		} `json:"alt_text"`
	}{}
	body.MediaID = p.mediaID
	body.AltText.Text = p.altText

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(buf), nil
}

func (p *metadataParameters) ParameterMap() map[string]string {
	return map[string]string{}
}

type metadataResponse struct{}

func (metadataResponse) HasPartialError() bool { return false }
