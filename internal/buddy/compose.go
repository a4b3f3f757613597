package buddy

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// DefaultNames stand in for a listing without a name.
	DefaultNames = []string{"pup", "pupper", "doggie", "cutie"}

	// SingularPhrases close a post about one dog.
	SingularPhrases = []string{
		"needs a loving home!",
		"is looking for a new family!",
		"is looking for a furever home!",
		"needs a new best friend!",
		"needs a place to call home!",
		"is looking for a forever home!",
		"wants to be your buddy!",
		"is looking for a loving family!",
		"is in need of love!",
		"is in need of a loving home!",
		"is looking for a new home!",
		"needs some lovin'!",
		"could be your new buddy!",
	}

	// PluralPhrases close a post about several dogs listed together.
	PluralPhrases = []string{
		"need a loving home!",
		"are looking for a new family!",
		"are looking for a furever home!",
		"need a new best friend!",
		"need a place to call home!",
		"are looking for a forever home!",
		"want to be your buddy!",
		"are looking for a loving family!",
		"are in need of love!",
		"are in need of a loving home!",
		"are looking for a new home!",
		"need some lovin'!",
		"could be your new buddies!",
	}
)

var (
	conjunctionRe = regexp.MustCompile(`(?i)\band\b`)
	parenRe       = regexp.MustCompile(`\(.*\)`)
)

// Composer turns a listing into post text. Empty pools fall back to the
// package defaults.
type Composer struct {
	Rand     Picker
	Names    []string
	Singular []string
	Plural   []string
}

// NewComposer returns a Composer using the default pools.
func NewComposer(r Picker) *Composer {
	return &Composer{Rand: r}
}

// Compose builds "<name> <phrase> <url>" for the listing.
func (c *Composer) Compose(l *Listing) (string, error) {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		name = "This " + c.pick(orDefault(c.Names, DefaultNames))
	}

	// Stale listings sometimes carry the adoption status in the name before
	// the status field is updated.
	if strings.Contains(strings.ToLower(name), "adoption pending") {
		return "", ContentError{Name: name, Reason: "name indicates an adoption is pending"}
	}

	phrases := orDefault(c.Singular, SingularPhrases)
	if IsMultiple(name) {
		phrases = orDefault(c.Plural, PluralPhrases)
	}
	phrase := c.pick(phrases)

	link := strings.TrimSpace(l.URL)
	if link == "" {
		return "", MissingLinkError{ListingID: l.ID}
	}

	return fmt.Sprintf("%s %s %s", name, phrase, link), nil
}

// IsMultiple reports whether a name reads as more than one animal, e.g.
// "Max & Ruby". Hyphens, tildes and parentheses usually mean the "&" or "and"
// belongs to a single compound name, so those names count as one.
func IsMultiple(name string) bool {
	if !strings.Contains(name, "&") && !conjunctionRe.MatchString(name) {
		return false
	}
	return !strings.ContainsAny(name, "-~") && !parenRe.MatchString(name)
}

func (c *Composer) pick(pool []string) string {
	return pool[c.Rand.IntN(len(pool))]
}

func orDefault(pool, fallback []string) []string {
	if len(pool) == 0 {
		return fallback
	}
	return pool
}
