package buddy

import (
	"fmt"
	"strings"
)

// MissingConfigError is returned when required settings are absent.
type MissingConfigError struct {
	Provider  string
	Variables []string
}

func (e MissingConfigError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Provider)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Provider, strings.Join(e.Variables, ", "))
}

// AuthError means the listing provider did not hand out a usable token.
type AuthError struct {
	Provider string
	Err      error
}

func (e AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s authentication failed: no access token in response", e.Provider)
}

func (e AuthError) Unwrap() error { return e.Err }

// NotFoundError means the search returned no listings.
type NotFoundError struct {
	Location string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no dog listings found for %s", e.Location)
}

// ShapeError means the provider returned something other than a listing object.
type ShapeError struct {
	Reason string
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("malformed listing: %s", e.Reason)
}

// ContentError flags a listing whose content makes it unfit to post.
type ContentError struct {
	Name   string
	Reason string
}

func (e ContentError) Error() string {
	return fmt.Sprintf("listing %q rejected: %s", e.Name, e.Reason)
}

// MissingLinkError means the listing has no URL to share.
type MissingLinkError struct {
	ListingID int
}

func (e MissingLinkError) Error() string {
	return fmt.Sprintf("listing %d has no valid URL", e.ListingID)
}

// FetchError is returned when an image download does not succeed.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetch image %s: unexpected status %d", e.URL, e.StatusCode)
}

// PlatformError wraps a failed call to a remote API.
type PlatformError struct {
	Provider string
	Op       string
	Err      error
}

func (e PlatformError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e PlatformError) Unwrap() error { return e.Err }

// AttemptsError is returned once every attempt has failed. Err is the
// failure of the final attempt.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error { return e.Err }
