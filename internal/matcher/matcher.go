// Package matcher implements the keyword pre-filter: a pure, deterministic
// check for which configured terms literally occur in a post.
package matcher

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/perch-labs/leadscout/internal/model"
)

// TermLists holds the three configured term lists. Order is significant:
// match output preserves it.
type TermLists struct {
	Keywords   []string `yaml:"keywords"`
	Roles      []string `yaml:"roles"`
	Categories []string `yaml:"categories"`
}

var fold = cases.Fold()

// Match reports which keywords, roles, and categories occur in the post.
// Keywords are matched against the content only; roles and categories also
// match against the author title. Matching is case-insensitive substring
// containment. Empty content yields three empty subsets.
func Match(content, authorTitle string, lists TermLists) model.FilterMatch {
	var m model.FilterMatch
	if strings.TrimSpace(content) == "" {
		return m
	}

	contentF := fold.String(content)
	titleF := fold.String(authorTitle)

	for _, kw := range lists.Keywords {
		// Configured keywords may be quoted for exact-phrase search upstream.
		term := fold.String(strings.Trim(kw, `"`))
		if term != "" && strings.Contains(contentF, term) {
			m.Keywords = append(m.Keywords, kw)
		}
	}
	for _, role := range lists.Roles {
		term := fold.String(role)
		if term != "" && (strings.Contains(titleF, term) || strings.Contains(contentF, term)) {
			m.Roles = append(m.Roles, role)
		}
	}
	for _, cat := range lists.Categories {
		term := fold.String(cat)
		if term != "" && (strings.Contains(titleF, term) || strings.Contains(contentF, term)) {
			m.Categories = append(m.Categories, cat)
		}
	}
	return m
}
