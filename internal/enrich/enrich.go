// Package enrich derives presentation fields for a qualified lead: the
// author's company pulled from their title and any budget hints in the
// post text.
package enrich

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perch-labs/leadscout/internal/model"
)

// atSeparator matches a word-bounded "at" so titles like "Head of Data"
// don't split on the substring.
var atSeparator = regexp.MustCompile(`(?i)\bat\b`)

// budgetPatterns mirror the mentions worth surfacing: dollar amounts and
// ranges, budget/retainer phrasing, and per-month figures.
var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$[\d,]+(?:k|K)?(?:\s*(?:-|to)\s*\$[\d,]+(?:k|K)?)?`),
	regexp.MustCompile(`(?i)budget.*?\$[\d,]+`),
	regexp.MustCompile(`(?i)retainer.*?\$[\d,]+`),
	regexp.MustCompile(`(?i)[\d,]+k?\s*(?:per|/)\s*month`),
}

// CompanyFromTitle extracts a company name from an author title such as
// "CMO at Acme Corp". Separators are tried in order: word-bounded "at",
// then "@", then "|". Returns "" when no separator matches.
func CompanyFromTitle(title string) string {
	if loc := atSeparator.FindStringIndex(title); loc != nil {
		return strings.TrimSpace(title[loc[1]:])
	}
	if _, after, ok := strings.Cut(title, "@"); ok {
		return strings.TrimSpace(after)
	}
	if _, after, ok := strings.Cut(title, "|"); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// BudgetMention returns the first budget or retainer hint found in text,
// or "" when none matches.
func BudgetMention(text string) string {
	for _, p := range budgetPatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// BuildLead assembles the persisted lead from a qualified post, its filter
// match, and the classifier verdict.
func BuildLead(post model.RawPost, match model.FilterMatch, verdict model.Verdict, now time.Time) model.Lead {
	return model.Lead{
		ID:            uuid.NewString(),
		Platform:      post.Platform,
		ExternalID:    post.ExternalID,
		AuthorName:    post.AuthorName,
		AuthorTitle:   post.AuthorTitle,
		Company:       CompanyFromTitle(post.AuthorTitle),
		Content:       post.Content,
		Permalink:     post.Permalink,
		PostedAt:      post.PostedAt,
		ScrapedAt:     now.UTC(),
		BudgetMention: BudgetMention(post.Content),
		Match:         match,
		Verdict:       verdict,
		RawJSON:       post.RawJSON,
	}
}
