/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/blacktop/findabuddy/internal/buddy"
	"github.com/blacktop/findabuddy/internal/buddy/bluesky"
	"github.com/blacktop/findabuddy/internal/buddy/mastodon"
	"github.com/blacktop/findabuddy/internal/buddy/petfinder"
	"github.com/blacktop/findabuddy/internal/buddy/twitter"
	"github.com/blacktop/findabuddy/internal/logutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	petfinderClientID     string
	petfinderClientSecret string
	petfinderURL          string
	twitterAPIKey         string
	twitterAPISecret      string
	twitterAccessToken    string
	twitterAccessSecret   string
	locationFlag          string
	distanceFlag          int
	accountFlag           string
	targetFlag            string
	dryRun                bool
	verbose               bool
	seedFlag              uint64
)

var supportedTargets = map[string]struct{}{
	"bluesky":  {},
	"mastodon": {},
	"twitter":  {},
}

// reportedError has already been shown to the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Execute runs the root command.
func Execute(ctx context.Context) error {
	err := newRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.As(err, new(reportedError)) {
		logutil.Errorf("%v", err)
	}
	return err
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "findabuddy",
		Short: "Post an adoptable dog looking for a home",
		Long: "findabuddy picks a random adoptable dog near a location from Petfinder and posts it, " +
			"with its photo, to X/Twitter, Mastodon, or Bluesky. Every credential flag can also be set " +
			"through the matching FINDABUDDY_* environment variable.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runRoot,
		Example: `  findabuddy --location "Portland, OR" --account findabuddy
  findabuddy --location 97201 --distance 10 --target mastodon
  findabuddy --location "45.52,-122.68" --dry-run`,
	}

	cmd.Flags().StringVar(&petfinderClientID, "petfinder-client-id", "", "Your key for the Petfinder API")
	cmd.Flags().StringVar(&petfinderClientSecret, "petfinder-client-secret", "", "Your secret for the Petfinder API")
	cmd.Flags().StringVar(&twitterAPIKey, "twitter-api-key", "", "Your key for the X API")
	cmd.Flags().StringVar(&twitterAPISecret, "twitter-api-secret", "", "Your secret for the X API")
	cmd.Flags().StringVar(&twitterAccessToken, "twitter-access-token", "", "Access token for your X developer account")
	cmd.Flags().StringVar(&twitterAccessSecret, "twitter-access-token-secret", "", "Access token secret for your X developer account")
	cmd.Flags().StringVarP(&locationFlag, "location", "l", "", "Where to search: city, state; latitude,longitude; or postal code")
	cmd.Flags().IntVarP(&distanceFlag, "distance", "d", buddy.DefaultDistance, "Search radius around location in miles")
	cmd.Flags().StringVarP(&accountFlag, "account", "a", "", "Account name used to build a link to the post")
	cmd.Flags().StringVarP(&targetFlag, "target", "t", "twitter", "Platform to post to (twitter, mastodon, bluesky)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Find a dog and compose the post without publishing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")
	cmd.Flags().StringVar(&petfinderURL, "petfinder-url", petfinder.DefaultBaseURL, "Petfinder API base URL")
	cmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Seed for name and phrase selection (0 picks one at random)")
	_ = cmd.Flags().MarkHidden("petfinder-url")
	_ = cmd.Flags().MarkHidden("seed")
	cmd.Flags().SortFlags = false

	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logutil.SetVerbose(verbose)

	target, err := normalizeTarget(targetFlag)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	required := target
	if dryRun {
		required = ""
	}
	if err := cfg.Validate(required); err != nil {
		return err
	}

	listings, err := petfinder.New(petfinder.Config{
		ClientID:     cfg.Petfinder.ClientID,
		ClientSecret: cfg.Petfinder.ClientSecret,
		BaseURL:      petfinderURL,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	var publisher buddy.Publisher
	if dryRun {
		publisher = &buddy.DryRun{Platform: target, Out: out}
	} else {
		publisher, err = buildPublisher(ctx, target, cfg)
		if err != nil {
			return err
		}
	}

	fancy := isTerminal(out)
	icon := func(s string) string {
		if fancy {
			return s
		}
		return ""
	}

	finder := &buddy.Finder{
		Listings:  listings,
		Publisher: publisher,
		Composer:  buddy.NewComposer(newRand(seedFlag)),
		Images:    buddy.NewImageFetcher(nil),
		Search:    cfg.Search(),
		Out:       out,
		Emoji:     fancy,
	}

	fmt.Fprintf(out, "\n%sFinding a buddy!\n", icon("🐶 "))
	res, err := finder.Run(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%sPost could not be created:\n\n%s\n", icon("😿 "), buddy.Indent(err.Error(), 1))
		return reportedError{err}
	}

	if dryRun {
		fmt.Fprintf(out, "Dry run finished after %d attempt(s); nothing was posted.\n", res.Attempts)
		return nil
	}

	msg := icon("🐦 ") + "Posted successfully!"
	if url := publisher.PostURL(cfg.Account, res.PostID); url != "" {
		msg = msg + " " + url
	}
	fmt.Fprintln(out, msg)

	return nil
}

// resolveConfig reads the environment and lets explicit flags override it.
func resolveConfig(cmd *cobra.Command) (*buddy.Config, error) {
	cfg, err := buddy.LoadConfig()
	if err != nil {
		return nil, err
	}

	override := func(dst *string, value string) {
		if v := strings.TrimSpace(value); v != "" {
			*dst = v
		}
	}
	override(&cfg.Petfinder.ClientID, petfinderClientID)
	override(&cfg.Petfinder.ClientSecret, petfinderClientSecret)
	override(&cfg.Twitter.APIKey, twitterAPIKey)
	override(&cfg.Twitter.APISecret, twitterAPISecret)
	override(&cfg.Twitter.AccessToken, twitterAccessToken)
	override(&cfg.Twitter.AccessSecret, twitterAccessSecret)
	override(&cfg.Location, locationFlag)
	override(&cfg.Account, accountFlag)

	if cmd.Flags().Changed("distance") {
		if distanceFlag <= 0 {
			return nil, fmt.Errorf("--distance must be positive, got %d", distanceFlag)
		}
		cfg.Distance = distanceFlag
	}

	return cfg, nil
}

func normalizeTarget(value string) (string, error) {
	target := strings.TrimSpace(strings.ToLower(value))
	if target == "" {
		return "twitter", nil
	}
	if _, ok := supportedTargets[target]; !ok {
		return "", fmt.Errorf("unsupported target %q", value)
	}
	return target, nil
}

// publisherConstructors builds the client for each supported target.
var publisherConstructors = map[string]func(context.Context, *buddy.Config) (buddy.Publisher, error){
	"bluesky": func(ctx context.Context, cfg *buddy.Config) (buddy.Publisher, error) {
		return bluesky.New(ctx, bluesky.Config{
			Handle:      cfg.Bluesky.Handle,
			AppPassword: cfg.Bluesky.AppPassword,
			PDSURL:      cfg.Bluesky.PDSURL,
		})
	},
	"mastodon": func(ctx context.Context, cfg *buddy.Config) (buddy.Publisher, error) {
		return mastodon.New(ctx, mastodon.Config{
			Server:       cfg.Mastodon.Server,
			AccessToken:  cfg.Mastodon.AccessToken,
			ClientID:     cfg.Mastodon.ClientID,
			ClientSecret: cfg.Mastodon.ClientSecret,
		})
	},
	"twitter": func(ctx context.Context, cfg *buddy.Config) (buddy.Publisher, error) {
		return twitter.New(ctx, twitter.Config{
			APIKey:       cfg.Twitter.APIKey,
			APISecret:    cfg.Twitter.APISecret,
			AccessToken:  cfg.Twitter.AccessToken,
			AccessSecret: cfg.Twitter.AccessSecret,
		})
	},
}

func buildPublisher(ctx context.Context, target string, cfg *buddy.Config) (buddy.Publisher, error) {
	constructor, ok := publisherConstructors[target]
	if !ok {
		return nil, fmt.Errorf("target %q is not implemented", target)
	}
	publisher, err := constructor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	return publisher, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
