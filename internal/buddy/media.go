package buddy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blacktop/findabuddy/internal/logutil"
	"github.com/hashicorp/go-cleanhttp"
)

// MediaFilename is the name every uploaded listing photo is sent under.
const MediaFilename = "buddy.jpg"

var (
	photoSizes   = []string{"full", "large", "medium", "small"}
	fetchTimeout = 30 * time.Second
)

// ImageURL returns the largest cropped photo available for the listing.
func ImageURL(l *Listing) (string, bool) {
	for _, size := range photoSizes {
		if u, ok := l.PrimaryPhotoCropped[size]; ok && u != "" {
			return u, true
		}
	}
	return "", false
}

// ImageFetcher downloads listing photos into memory.
type ImageFetcher struct {
	client *http.Client
}

// NewImageFetcher returns a fetcher; a nil client gets a pooled default.
func NewImageFetcher(client *http.Client) *ImageFetcher {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = fetchTimeout
	}
	return &ImageFetcher{client: client}
}

// Fetch returns the image body.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	logutil.Debugf("image fetched: url=%s bytes=%d", url, len(data))

	return data, nil
}

// uploadListingImage uploads the listing's photo and returns the media
// handle, or "" when the listing has no photo.
func uploadListingImage(ctx context.Context, f *ImageFetcher, p Publisher, l *Listing) (string, error) {
	url, ok := ImageURL(l)
	if !ok {
		logutil.Debugf("listing %d has no photo", l.ID)
		return "", nil
	}

	data, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	mediaID, err := p.UploadMedia(ctx, Media{Filename: MediaFilename, Data: data, AltText: altText(l)})
	if err != nil {
		return "", err
	}
	logutil.Debugf("media uploaded: provider=%s media_id=%s", p.Name(), mediaID)

	return mediaID, nil
}

func altText(l *Listing) string {
	if name := strings.TrimSpace(l.Name); name != "" {
		return "Photo of " + name + ", an adoptable dog"
	}
	return "Photo of an adoptable dog"
}
