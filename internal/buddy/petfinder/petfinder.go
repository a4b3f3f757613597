// Package petfinder queries the Petfinder v2 API for adoptable dogs.
package petfinder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blacktop/findabuddy/internal/buddy"
	"github.com/blacktop/findabuddy/internal/logutil"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	providerName = "petfinder"

	// DefaultBaseURL is the Petfinder v2 API root.
	DefaultBaseURL = "https://api.petfinder.com/v2"
)

var httpTimeout = 30 * time.Second

// Config holds the client credentials issued by Petfinder.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   *http.Client
}

// Client implements buddy.ListingSource.
type Client struct {
	http    *http.Client
	oauth   clientcredentials.Config
	baseURL string
}

// New returns a Petfinder client. Nothing is fetched until RandomListing.
func New(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.ClientID) == "" {
		missing = append(missing, "client id")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		missing = append(missing, "client secret")
	}
	if len(missing) > 0 {
		return nil, buddy.MissingConfigError{Provider: providerName, Variables: missing}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		httpClient.Timeout = httpTimeout
	}

	return &Client{
		http: httpClient,
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     baseURL + "/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		baseURL: baseURL,
	}, nil
}

// RandomListing authenticates and returns one random adoptable dog within
// search.Distance miles of search.Location. A new token is requested on
// every call.
func (c *Client) RandomListing(ctx context.Context, search buddy.Search) (*buddy.Listing, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("location", search.Location)
	params.Set("distance", strconv.Itoa(search.Distance))
	params.Set("status", "adoptable")
	params.Set("type", "Dog")
	params.Set("sort", "random")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/animals?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	logutil.Debugf("searching listings: location=%q distance=%d", search.Location, search.Distance)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, buddy.PlatformError{Provider: providerName, Op: "search", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body struct {
		Animals []json.RawMessage `json:"animals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, buddy.ShapeError{Reason: fmt.Sprintf("decode search response: %v", err)}
	}

	return decodeListing(body.Animals, search.Location)
}

func (c *Client) token(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.oauth.Token(ctx)
	if err != nil {
		return "", buddy.AuthError{Provider: providerName, Err: err}
	}
	// Guard against a 2xx response without a token.
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return "", buddy.AuthError{Provider: providerName}
	}
	logutil.Debugf("petfinder token acquired: expires=%s", tok.Expiry.Format(time.RFC3339))

	return tok.AccessToken, nil
}

func decodeListing(animals []json.RawMessage, location string) (*buddy.Listing, error) {
	if len(animals) == 0 {
		return nil, buddy.NotFoundError{Location: location}
	}

	raw := bytes.TrimSpace(animals[0])
	if len(raw) == 0 || raw[0] != '{' {
		return nil, buddy.ShapeError{Reason: "listing is not a JSON object"}
	}

	var listing buddy.Listing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, buddy.ShapeError{Reason: err.Error()}
	}

	return &listing, nil
}
