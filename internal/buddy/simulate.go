package buddy

import (
	"context"
	"fmt"
	"io"
)

// DryRun stands in for a platform and reports what would be sent to it.
type DryRun struct {
	Platform string
	Out      io.Writer
}

// Name returns the platform being simulated.
func (d *DryRun) Name() string { return d.Platform }

// UploadMedia prints the upload and returns a placeholder media ID.
func (d *DryRun) UploadMedia(ctx context.Context, media Media) (string, error) {
	fmt.Fprintf(d.Out, "[dry-run] would upload %s to %s (%d bytes, alt: %q)\n", media.Filename, d.Platform, len(media.Data), media.AltText)
	return "dry-run-media", nil
}

// Publish prints the post text and returns no post ID.
func (d *DryRun) Publish(ctx context.Context, draft Draft) (string, error) {
	fmt.Fprintf(d.Out, "[dry-run] would post to %s: %q\n", d.Platform, draft.Text)
	if draft.MediaID != "" {
		fmt.Fprintf(d.Out, "[dry-run] with media %s\n", draft.MediaID)
	}
	return "", nil
}

// PostURL is always empty since nothing is posted.
func (d *DryRun) PostURL(account, postID string) string { return "" }
