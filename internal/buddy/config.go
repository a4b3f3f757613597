package buddy

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultDistance is the search radius in miles when none is given.
const DefaultDistance = 25

// Config holds every credential and search setting for one run. Flags
// override the environment.
type Config struct {
	Petfinder struct {
		ClientID     string `env:"FINDABUDDY_PETFINDER_CLIENT_ID" env-description:"Petfinder API key"`
		ClientSecret string `env:"FINDABUDDY_PETFINDER_CLIENT_SECRET" env-description:"Petfinder API secret"`
	}
	Twitter struct {
		APIKey       string `env:"FINDABUDDY_TWITTER_API_KEY" env-description:"X API key"`
		APISecret    string `env:"FINDABUDDY_TWITTER_API_SECRET" env-description:"X API secret"`
		AccessToken  string `env:"FINDABUDDY_TWITTER_ACCESS_TOKEN" env-description:"X user access token"`
		AccessSecret string `env:"FINDABUDDY_TWITTER_ACCESS_TOKEN_SECRET" env-description:"X user access token secret"`
	}
	Mastodon struct {
		Server       string `env:"FINDABUDDY_MASTODON_SERVER"`
		AccessToken  string `env:"FINDABUDDY_MASTODON_ACCESS_TOKEN"`
		ClientID     string `env:"FINDABUDDY_MASTODON_CLIENT_ID"`
		ClientSecret string `env:"FINDABUDDY_MASTODON_CLIENT_SECRET"`
	}
	Bluesky struct {
		Handle      string `env:"FINDABUDDY_BLUESKY_HANDLE"`
		AppPassword string `env:"FINDABUDDY_BLUESKY_APP_PASSWORD"`
		PDSURL      string `env:"FINDABUDDY_BLUESKY_PDS_URL" env-default:"https://bsky.social"`
	}

	Location string `env:"FINDABUDDY_LOCATION" env-description:"city, state; latitude,longitude; or postal code"`
	Distance int    `env:"FINDABUDDY_DISTANCE" env-default:"25"`
	Account  string `env:"FINDABUDDY_ACCOUNT" env-description:"account name used to build the post URL"`
}

// LoadConfig reads the environment into a Config.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.trim()
	return cfg, nil
}

// Search returns the listing query described by the config.
func (c *Config) Search() Search {
	distance := c.Distance
	if distance <= 0 {
		distance = DefaultDistance
	}
	return Search{Location: c.Location, Distance: distance}
}

// Validate checks the settings needed to post to target. An empty target
// checks only the listing search, which is all a dry run needs.
func (c *Config) Validate(target string) error {
	c.trim()

	var missing []string
	require := func(value, name string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require(c.Petfinder.ClientID, "--petfinder-client-id")
	require(c.Petfinder.ClientSecret, "--petfinder-client-secret")
	require(c.Location, "--location")

	switch target {
	case "":
	case "twitter":
		require(c.Twitter.APIKey, "--twitter-api-key")
		require(c.Twitter.APISecret, "--twitter-api-secret")
		require(c.Twitter.AccessToken, "--twitter-access-token")
		require(c.Twitter.AccessSecret, "--twitter-access-token-secret")
	case "mastodon":
		require(c.Mastodon.Server, "FINDABUDDY_MASTODON_SERVER")
		require(c.Mastodon.AccessToken, "FINDABUDDY_MASTODON_ACCESS_TOKEN")
	case "bluesky":
		require(c.Bluesky.Handle, "FINDABUDDY_BLUESKY_HANDLE")
		require(c.Bluesky.AppPassword, "FINDABUDDY_BLUESKY_APP_PASSWORD")
		require(c.Bluesky.PDSURL, "FINDABUDDY_BLUESKY_PDS_URL")
	default:
		return fmt.Errorf("unsupported target %q", target)
	}

	if len(missing) > 0 {
		return MissingConfigError{Provider: target, Variables: missing}
	}
	return nil
}

func (c *Config) trim() {
	for _, s := range []*string{
		&c.Petfinder.ClientID, &c.Petfinder.ClientSecret,
		&c.Twitter.APIKey, &c.Twitter.APISecret, &c.Twitter.AccessToken, &c.Twitter.AccessSecret,
		&c.Mastodon.Server, &c.Mastodon.AccessToken, &c.Mastodon.ClientID, &c.Mastodon.ClientSecret,
		&c.Bluesky.Handle, &c.Bluesky.AppPassword, &c.Bluesky.PDSURL,
		&c.Location, &c.Account,
	} {
		*s = strings.TrimSpace(*s)
	}
}
