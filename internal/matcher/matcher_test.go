package matcher

import (
	"reflect"
	"testing"
)

func TestMatch_KeywordContentRolesTitle(t *testing.T) {
	lists := TermLists{
		Keywords:   []string{"pr agency"},
		Roles:      []string{"CMO"},
		Categories: []string{"Beauty"},
	}

	m := Match("Looking for a PR agency for our Beauty brand", "", lists)

	if !reflect.DeepEqual(m.Keywords, []string{"pr agency"}) {
		t.Errorf("keywords = %v, want [pr agency]", m.Keywords)
	}
	if len(m.Roles) != 0 {
		t.Errorf("roles = %v, want empty", m.Roles)
	}
	if !reflect.DeepEqual(m.Categories, []string{"Beauty"}) {
		t.Errorf("categories = %v, want [Beauty]", m.Categories)
	}
}

func TestMatch_RolesAndCategoriesMatchTitle(t *testing.T) {
	lists := TermLists{
		Keywords:   []string{"looking for a pr agency"},
		Roles:      []string{"CMO", "VP Marketing"},
		Categories: []string{"Beauty", "CPG"},
	}

	m := Match("Looking for a PR agency to help with our launch", "CMO at a CPG startup", lists)

	if !reflect.DeepEqual(m.Keywords, []string{"looking for a pr agency"}) {
		t.Errorf("keywords = %v", m.Keywords)
	}
	if !reflect.DeepEqual(m.Roles, []string{"CMO"}) {
		t.Errorf("roles = %v, want [CMO]", m.Roles)
	}
	if !reflect.DeepEqual(m.Categories, []string{"CPG"}) {
		t.Errorf("categories = %v, want [CPG]", m.Categories)
	}
}

func TestMatch_PreservesConfiguredOrder(t *testing.T) {
	lists := TermLists{
		Keywords: []string{"need a pr firm", "pr agency", "brand launch"},
	}

	m := Match("Planning a brand launch and we need a PR firm, ideally a boutique PR agency", "", lists)

	want := []string{"need a pr firm", "pr agency", "brand launch"}
	if !reflect.DeepEqual(m.Keywords, want) {
		t.Errorf("keywords = %v, want %v", m.Keywords, want)
	}
}

func TestMatch_EmptyContent(t *testing.T) {
	lists := TermLists{
		Keywords:   []string{"pr agency"},
		Roles:      []string{"CMO"},
		Categories: []string{"Beauty"},
	}

	m := Match("", "CMO at Beauty Co", lists)
	if !m.Empty() {
		t.Errorf("expected empty match for empty content, got %+v", m)
	}
}

func TestMatch_QuotedKeywords(t *testing.T) {
	// Upstream search configs quote keywords for exact-phrase matching.
	lists := TermLists{Keywords: []string{`"hiring a PR agency"`}}

	m := Match("We are hiring a PR agency this quarter", "", lists)
	if len(m.Keywords) != 1 || m.Keywords[0] != `"hiring a PR agency"` {
		t.Errorf("keywords = %v", m.Keywords)
	}
}

func TestMatch_CaseFolding(t *testing.T) {
	lists := TermLists{Keywords: []string{"PR AGENCY"}, Categories: []string{"skincare"}}

	m := Match("looking for a pr agency for our Skincare line", "", lists)
	if len(m.Keywords) != 1 || len(m.Categories) != 1 {
		t.Errorf("match = %+v", m)
	}
}

func TestMatch_NoMatches(t *testing.T) {
	lists := TermLists{
		Keywords:   []string{"pr agency"},
		Roles:      []string{"CMO"},
		Categories: []string{"Beauty"},
	}

	m := Match("Enjoying a quiet weekend hike", "Software Engineer", lists)
	if !m.Empty() {
		t.Errorf("expected no matches, got %+v", m)
	}
}
