package model

import "regexp"

// LinkedIn activity IDs are always 19 digits. Permalinks come in two
// shapes: /posts/username-<id>-hash and urn:li:activity:<id>.
var (
	linkedinPostRe     = regexp.MustCompile(`/posts/[^/]*?-(\d{19})(?:-|$)`)
	linkedinActivityRe = regexp.MustCompile(`activity[:-](\d{19})`)
	linkedinAnyRe      = regexp.MustCompile(`(\d{19})`)
	twitterStatusRe    = regexp.MustCompile(`/status(?:es)?/(\d+)`)
	blueskyPostRe      = regexp.MustCompile(`(?:at://[^/]+/app\.bsky\.feed\.post/|/profile/[^/]+/post/)([A-Za-z0-9]+)`)
)

// DeriveExternalID extracts a platform-native post identifier from a
// permalink. Returns "" when no identifier can be derived.
func DeriveExternalID(platform Platform, permalink string) string {
	if permalink == "" {
		return ""
	}
	switch platform {
	case PlatformLinkedIn:
		if m := linkedinPostRe.FindStringSubmatch(permalink); m != nil {
			return m[1]
		}
		if m := linkedinActivityRe.FindStringSubmatch(permalink); m != nil {
			return m[1]
		}
		// Loose fallback for URL variants that still embed the id.
		if m := linkedinAnyRe.FindStringSubmatch(permalink); m != nil {
			return m[1]
		}
	case PlatformTwitter:
		if m := twitterStatusRe.FindStringSubmatch(permalink); m != nil {
			return m[1]
		}
	case PlatformBluesky:
		if m := blueskyPostRe.FindStringSubmatch(permalink); m != nil {
			return m[1]
		}
	}
	return ""
}
