package buddy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSource struct {
	calls    int
	listings []*Listing
	errs     []error
}

func (s *fakeSource) RandomListing(ctx context.Context, search Search) (*Listing, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.listings[i], nil
}

type fakePublisher struct {
	uploads     []string
	alts        []string
	drafts      []Draft
	publishErrs []error
}

func (p *fakePublisher) Name() string { return "fake" }

func (p *fakePublisher) UploadMedia(ctx context.Context, media Media) (string, error) {
	if media.Filename != MediaFilename {
		return "", fmt.Errorf("unexpected filename %q", media.Filename)
	}
	p.alts = append(p.alts, media.AltText)
	id := fmt.Sprintf("media-%d", len(p.uploads)+1)
	p.uploads = append(p.uploads, id)
	return id, nil
}

func (p *fakePublisher) Publish(ctx context.Context, draft Draft) (string, error) {
	i := len(p.drafts)
	p.drafts = append(p.drafts, draft)
	if i < len(p.publishErrs) && p.publishErrs[i] != nil {
		return "", p.publishErrs[i]
	}
	return "post-1", nil
}

func (p *fakePublisher) PostURL(account, postID string) string {
	return account + "/" + postID
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	t.Cleanup(server.Close)
	return server
}

func attemptLines(out string) int {
	return strings.Count(out, "Post attempt #")
}

func TestRunSucceedsOnThirdAttempt(t *testing.T) {
	images := newImageServer(t)
	source := &fakeSource{
		errs: []error{NotFoundError{Location: "Portland, OR"}, nil, nil},
		listings: []*Listing{
			nil,
			{ID: 2, Name: "Rex", URL: "https://example.org/rex", PrimaryPhotoCropped: map[string]string{"full": images.URL + "/rex.jpg"}},
			{ID: 3, Name: "Buddy", URL: "https://example.org/buddy", PrimaryPhotoCropped: map[string]string{"small": images.URL + "/buddy.jpg"}},
		},
	}
	pub := &fakePublisher{publishErrs: []error{PlatformError{Provider: "fake", Op: "post", Err: errors.New("503")}}}
	var out bytes.Buffer

	f := &Finder{
		Listings:  source,
		Publisher: pub,
		Composer:  &Composer{Rand: fixedPicker(0), Singular: []string{"needs a loving home!"}},
		Images:    NewImageFetcher(images.Client()),
		Out:       &out,
	}

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.PostID != "post-1" || res.Attempts != 3 {
		t.Errorf("Run() = %+v, want post-1 after 3 attempts", res)
	}
	if n := attemptLines(out.String()); n != 3 {
		t.Errorf("attempt lines = %d, want 3\n%s", n, out.String())
	}

	last := pub.drafts[len(pub.drafts)-1]
	want := Draft{Text: "Buddy needs a loving home! https://example.org/buddy", MediaID: "media-2"}
	if last != want {
		t.Errorf("final draft = %+v, want %+v", last, want)
	}
	if got := pub.alts[len(pub.alts)-1]; got != "Photo of Buddy, an adoptable dog" {
		t.Errorf("alt text = %q", got)
	}
	if !strings.Contains(out.String(), "    no dog listings found for Portland, OR") {
		t.Errorf("missing indented failure line:\n%s", out.String())
	}
}

func TestRunExhaustsAttempts(t *testing.T) {
	errs := []error{
		AuthError{Provider: "petfinder"},
		ShapeError{Reason: "first"},
		ShapeError{Reason: "final"},
	}
	source := &fakeSource{errs: errs}
	pub := &fakePublisher{}
	var out bytes.Buffer

	f := &Finder{Listings: source, Publisher: pub, Composer: NewComposer(fixedPicker(0)), Images: NewImageFetcher(nil), Out: &out}

	res, err := f.Run(context.Background())
	var attemptsErr *AttemptsError
	if !errors.As(err, &attemptsErr) {
		t.Fatalf("Run() error = %v, want *AttemptsError", err)
	}
	if attemptsErr.Attempts != 3 || res.Attempts != 3 {
		t.Errorf("attempts = %d/%d, want 3", attemptsErr.Attempts, res.Attempts)
	}
	var shapeErr ShapeError
	if !errors.As(err, &shapeErr) || shapeErr.Reason != "final" {
		t.Errorf("Run() error = %v, want final attempt's error", err)
	}
	if source.calls != 3 {
		t.Errorf("listing lookups = %d, want 3", source.calls)
	}
	if len(pub.drafts) != 0 {
		t.Errorf("published %d drafts, want none", len(pub.drafts))
	}
	if n := attemptLines(out.String()); n != 3 {
		t.Errorf("attempt lines = %d, want 3", n)
	}
}

func TestRunWithoutPhotoSkipsUpload(t *testing.T) {
	source := &fakeSource{listings: []*Listing{{ID: 1, Name: "Ace", URL: "https://example.org/ace"}}}
	pub := &fakePublisher{}

	f := &Finder{Listings: source, Publisher: pub, Composer: NewComposer(fixedPicker(0)), Images: NewImageFetcher(nil), MaxAttempts: 1}

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if len(pub.uploads) != 0 {
		t.Errorf("uploads = %v, want none", pub.uploads)
	}
	if pub.drafts[0].MediaID != "" {
		t.Errorf("MediaID = %q, want empty", pub.drafts[0].MediaID)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &cancelingSource{cancel: cancel}

	f := &Finder{Listings: source, Publisher: &fakePublisher{}, Composer: NewComposer(fixedPicker(0)), Images: NewImageFetcher(nil)}

	_, err := f.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if source.calls != 1 {
		t.Errorf("listing lookups = %d, want 1", source.calls)
	}
}

type cancelingSource struct {
	calls  int
	cancel context.CancelFunc
}

func (s *cancelingSource) RandomListing(ctx context.Context, search Search) (*Listing, error) {
	s.calls++
	s.cancel()
	return nil, errors.New("boom")
}

func TestIndent(t *testing.T) {
	got := Indent("a\n\nb", 1)
	if got != "    a\n\n    b" {
		t.Errorf("Indent() = %q", got)
	}
}
