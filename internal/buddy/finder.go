package buddy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blacktop/findabuddy/internal/logutil"
	"github.com/cenkalti/backoff/v4"
)

// MaxAttempts is the default number of full attempts before giving up.
const MaxAttempts = 3

// Finder runs listing lookup, composition, media upload and publishing as
// one attempt, repeating the whole sequence on any failure.
//
// Every error is retried the same way, whether it is a network blip or a
// listing that can never be posted. Nothing from a failed attempt is reused.
type Finder struct {
	Listings    ListingSource
	Publisher   Publisher
	Composer    *Composer
	Images      *ImageFetcher
	Search      Search
	MaxAttempts int
	Out         io.Writer
	Emoji       bool
}

// Run attempts to publish one post. After the last failed attempt it returns
// an *AttemptsError wrapping that attempt's error.
func (f *Finder) Run(ctx context.Context) (Result, error) {
	maxAttempts := f.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}

	var (
		attempt int
		postID  string
		lastErr error
	)

	operation := func() error {
		attempt++
		f.printf("%sPost attempt #%d...\n", f.icon("🐾 "), attempt)

		id, err := f.attempt(ctx)
		if err != nil {
			lastErr = err
			f.printf("%s\n", Indent(err.Error(), 1))
			return err
		}
		postID = id
		return nil
	}

	notify := func(err error, _ time.Duration) {
		logutil.Debugf("attempt %d/%d failed, retrying: %v", attempt, maxAttempts, err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return Result{Attempts: attempt}, fmt.Errorf("stopped after %d attempts: %w", attempt, errors.Join(ctxErr, lastErr))
		}
		return Result{Attempts: attempt}, &AttemptsError{Attempts: attempt, Err: lastErr}
	}

	return Result{PostID: postID, Attempts: attempt}, nil
}

func (f *Finder) attempt(ctx context.Context) (string, error) {
	listing, err := f.Listings.RandomListing(ctx, f.Search)
	if err != nil {
		return "", err
	}
	logutil.Debugf("listing selected: id=%d name=%q", listing.ID, listing.Name)

	text, err := f.Composer.Compose(listing)
	if err != nil {
		return "", err
	}

	mediaID, err := uploadListingImage(ctx, f.Images, f.Publisher, listing)
	if err != nil {
		return "", err
	}

	return f.Publisher.Publish(ctx, Draft{Text: text, MediaID: mediaID})
}

func (f *Finder) printf(format string, args ...any) {
	if f.Out == nil {
		return
	}
	fmt.Fprintf(f.Out, format, args...)
}

func (f *Finder) icon(s string) string {
	if f.Emoji {
		return s
	}
	return ""
}

// Indent prefixes every line of msg with four spaces per level.
func Indent(msg string, levels int) string {
	pad := strings.Repeat(" ", 4*levels)
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}
