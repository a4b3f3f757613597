package buddy

import (
	"errors"
	"slices"
	"testing"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FINDABUDDY_PETFINDER_CLIENT_ID", " id ")
	t.Setenv("FINDABUDDY_PETFINDER_CLIENT_SECRET", "secret")
	t.Setenv("FINDABUDDY_LOCATION", "Portland, OR")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Petfinder.ClientID != "id" {
		t.Errorf("ClientID = %q, want trimmed value", cfg.Petfinder.ClientID)
	}
	if got := cfg.Search(); got != (Search{Location: "Portland, OR", Distance: DefaultDistance}) {
		t.Errorf("Search() = %+v", got)
	}
	if cfg.Bluesky.PDSURL != "https://bsky.social" {
		t.Errorf("PDSURL default = %q", cfg.Bluesky.PDSURL)
	}
}

func TestValidateListsMissingSettings(t *testing.T) {
	cfg := &Config{Location: "97201"}
	cfg.Petfinder.ClientID = "id"
	cfg.Twitter.APIKey = "key"

	err := cfg.Validate("twitter")
	var missingErr MissingConfigError
	if !errors.As(err, &missingErr) {
		t.Fatalf("Validate() error = %v, want MissingConfigError", err)
	}
	want := []string{"--petfinder-client-secret", "--twitter-api-secret", "--twitter-access-token", "--twitter-access-token-secret"}
	if !slices.Equal(missingErr.Variables, want) {
		t.Errorf("missing = %v, want %v", missingErr.Variables, want)
	}
}

func TestValidateTargets(t *testing.T) {
	cfg := &Config{Location: "97201"}
	cfg.Petfinder.ClientID = "id"
	cfg.Petfinder.ClientSecret = "secret"
	cfg.Mastodon.Server = "https://mastodon.social"
	cfg.Mastodon.AccessToken = "tok"

	if err := cfg.Validate("mastodon"); err != nil {
		t.Errorf("Validate(mastodon) error = %v", err)
	}
	if err := cfg.Validate("bluesky"); err == nil {
		t.Error("Validate(bluesky) error = nil, want missing handle")
	}
	if err := cfg.Validate(""); err != nil {
		t.Errorf("Validate(dry run) error = %v", err)
	}
	if err := cfg.Validate("myspace"); err == nil {
		t.Error("Validate(myspace) error = nil")
	}
}
