// Package buddy finds an adoptable dog and advertises it on a social platform.
package buddy

import "context"

// Listing is the subset of a Petfinder animal record used to build a post.
type Listing struct {
	ID                  int               `json:"id"`
	Name                string            `json:"name"`
	URL                 string            `json:"url"`
	Age                 string            `json:"age"`
	Gender              string            `json:"gender"`
	Size                string            `json:"size"`
	PrimaryPhotoCropped map[string]string `json:"primary_photo_cropped"`
}

// Search describes where to look for listings. Distance is in miles.
type Search struct {
	Location string
	Distance int
}

// Media is an in-memory image ready for upload.
type Media struct {
	Filename string
	Data     []byte
	AltText  string
}

// Draft is the payload for a single post attempt.
type Draft struct {
	Text    string
	MediaID string
}

// Result reports a successful run.
type Result struct {
	PostID   string
	Attempts int
}

// ListingSource returns one random adoptable dog near the search location.
type ListingSource interface {
	RandomListing(ctx context.Context, search Search) (*Listing, error)
}

// Publisher abstracts a social network that accepts an image and a post.
type Publisher interface {
	Name() string
	UploadMedia(ctx context.Context, media Media) (string, error)
	Publish(ctx context.Context, draft Draft) (string, error)
	PostURL(account, postID string) string
}

// Picker is the random source used when composing text. *rand.Rand from
// math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}
