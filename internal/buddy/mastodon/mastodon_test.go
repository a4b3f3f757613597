package mastodon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/blacktop/findabuddy/internal/buddy"
)

func TestNewRequiresServerAndToken(t *testing.T) {
	_, err := New(context.Background(), Config{Server: "https://mastodon.social"})
	var missing buddy.MissingConfigError
	if !errors.As(err, &missing) {
		t.Fatalf("New() error = %v, want MissingConfigError", err)
	}
}

func TestPostURL(t *testing.T) {
	c, err := New(context.Background(), Config{Server: "https://mastodon.social/", AccessToken: "tok"})
	if err != nil {
		t.Fatal(err)
	}

	if got := c.PostURL("findabuddy", "1099"); got != "https://mastodon.social/@findabuddy/1099" {
		t.Errorf("PostURL() = %q", got)
	}
	if got := c.PostURL("", "1099"); got != "" {
		t.Errorf("PostURL() without account = %q", got)
	}
}

func TestUploadAndPublish(t *testing.T) {
	var form url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/media", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse upload: %v", err)
		}
		if got := r.FormValue("description"); got != "Photo of Rex" {
			t.Errorf("description = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"m1","type":"image"}`))
	})
	mux.HandleFunc("/api/v1/statuses", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse status: %v", err)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"s9","content":"hi"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c, err := New(context.Background(), Config{Server: server.URL, AccessToken: "tok"})
	if err != nil {
		t.Fatal(err)
	}

	mediaID, err := c.UploadMedia(context.Background(), buddy.Media{Filename: buddy.MediaFilename, Data: []byte("jpeg"), AltText: "Photo of Rex"})
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if mediaID != "m1" {
		t.Errorf("UploadMedia() = %q, want m1", mediaID)
	}

	postID, err := c.Publish(context.Background(), buddy.Draft{Text: "Rex needs a home!", MediaID: mediaID})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if postID != "s9" {
		t.Errorf("Publish() = %q, want s9", postID)
	}
	if got := form["media_ids[]"]; len(got) != 1 || got[0] != "m1" {
		t.Errorf("media_ids[] = %v, want [m1]", got)
	}
	if got := form.Get("status"); got != "Rex needs a home!" {
		t.Errorf("status = %q", got)
	}
}

func TestPublishFailureIsPlatformError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"Validation failed"}`))
	}))
	defer server.Close()

	c, err := New(context.Background(), Config{Server: server.URL, AccessToken: "tok"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Publish(context.Background(), buddy.Draft{Text: "hi"})
	var platformErr buddy.PlatformError
	if !errors.As(err, &platformErr) || platformErr.Provider != "mastodon" {
		t.Errorf("Publish() error = %v, want mastodon PlatformError", err)
	}
}
