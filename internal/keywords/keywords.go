// Package keywords loads the configurable term lists that drive both the
// keyword pre-filter and the classifier prompt.
package keywords

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/perch-labs/leadscout/internal/matcher"
)

// Defaults returns the built-in term lists used when no file is configured.
func Defaults() matcher.TermLists {
	return matcher.TermLists{
		Keywords: []string{
			"pr agency",
			"pr firm",
			"public relations",
			"press coverage",
			"media outreach",
			"communications agency",
			"publicist",
		},
		Roles: []string{
			"founder",
			"ceo",
			"cmo",
			"marketing director",
			"head of marketing",
			"vp marketing",
			"brand manager",
		},
		Categories: []string{
			"Beauty",
			"Fashion",
			"Food",
			"Wellness",
			"Consumer Tech",
			"Lifestyle",
		},
	}
}

// Load reads term lists from a YAML file. Lists absent from the file fall
// back to the built-in defaults, so a file can override just one list.
func Load(path string) (matcher.TermLists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return matcher.TermLists{}, eris.Wrapf(err, "keywords: read %s", path)
	}
	return parse(data)
}

func parse(data []byte) (matcher.TermLists, error) {
	var lists matcher.TermLists
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return matcher.TermLists{}, eris.Wrap(err, "keywords: parse term lists")
	}

	defaults := Defaults()
	if len(lists.Keywords) == 0 {
		lists.Keywords = defaults.Keywords
	}
	if len(lists.Roles) == 0 {
		lists.Roles = defaults.Roles
	}
	if len(lists.Categories) == 0 {
		lists.Categories = defaults.Categories
	}
	return lists, nil
}
