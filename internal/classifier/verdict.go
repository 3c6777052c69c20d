package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/perch-labs/leadscout/internal/model"
)

// wireVerdict matches the JSON shape the model is instructed to emit.
type wireVerdict struct {
	IsGenuineLead     bool     `json:"is_genuine_lead"`
	ConfidenceScore   float64  `json:"confidence_score"`
	LeadQuality       string   `json:"lead_quality"`
	HiringType        string   `json:"hiring_type"`
	Reasoning         string   `json:"reasoning"`
	UrgencyIndicators []string `json:"urgency_indicators"`
	IndustryMatch     string   `json:"industry_match"`
	TargetRoleMatch   bool     `json:"target_role_match"`
	BudgetMentions    []string `json:"budget_mentions"`
	RedFlags          []string `json:"red_flags"`
}

// cleanJSON strips markdown code fences the model sometimes wraps around
// its response, then trims to the outermost JSON object.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

func parseVerdict(text string) (model.Verdict, error) {
	var w wireVerdict
	if err := json.Unmarshal([]byte(cleanJSON(text)), &w); err != nil {
		return model.Verdict{}, eris.Wrap(err, "classifier: decode verdict")
	}
	if err := validateWire(w); err != nil {
		return model.Verdict{}, err
	}
	return model.Verdict{
		IsLead:            w.IsGenuineLead,
		Confidence:        w.ConfidenceScore,
		Quality:           model.LeadQuality(w.LeadQuality),
		HiringType:        model.HiringType(w.HiringType),
		Reasoning:         w.Reasoning,
		UrgencyIndicators: w.UrgencyIndicators,
		BudgetMentions:    w.BudgetMentions,
		RedFlags:          w.RedFlags,
		IndustryMatch:     w.IndustryMatch,
		RoleMatch:         w.TargetRoleMatch,
	}, nil
}

func validateWire(w wireVerdict) error {
	if w.ConfidenceScore < 0 || w.ConfidenceScore > 100 {
		return eris.New(fmt.Sprintf("classifier: confidence %.1f out of range", w.ConfidenceScore))
	}
	if !validQuality(w.LeadQuality) {
		return eris.New(fmt.Sprintf("classifier: unknown lead quality %q", w.LeadQuality))
	}
	if !validHiringType(w.HiringType) {
		return eris.New(fmt.Sprintf("classifier: unknown hiring type %q", w.HiringType))
	}
	if len(strings.TrimSpace(w.Reasoning)) < 10 {
		return eris.New("classifier: reasoning too short")
	}
	return nil
}

func validQuality(s string) bool {
	for _, q := range model.AllLeadQualities() {
		if model.LeadQuality(s) == q {
			return true
		}
	}
	return false
}

func validHiringType(s string) bool {
	for _, h := range model.AllHiringTypes() {
		if model.HiringType(s) == h {
			return true
		}
	}
	return false
}

// FallbackVerdict is returned when classification cannot complete. It
// qualifies the item conservatively so a transient outage never drops
// a potential lead on the floor.
func FallbackVerdict(reason string) model.Verdict {
	return model.Verdict{
		IsLead:     true,
		Confidence: 50,
		Quality:    model.QualityWarm,
		HiringType: model.HiringUnclear,
		Reasoning:  reason,
		RedFlags:   []string{"classifier unavailable"},
		Fallback:   true,
	}
}
