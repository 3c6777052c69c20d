package model

// LeadQuality grades how promising a qualified lead looks.
type LeadQuality string

const (
	QualityHot  LeadQuality = "hot"
	QualityWarm LeadQuality = "warm"
	QualityCold LeadQuality = "cold"
)

// AllLeadQualities returns the valid quality grades.
func AllLeadQualities() []LeadQuality {
	return []LeadQuality{QualityHot, QualityWarm, QualityCold}
}

// HiringType distinguishes agency searches from in-house hiring.
type HiringType string

const (
	HiringAgency  HiringType = "agency"
	HiringInHouse HiringType = "in-house"
	HiringUnclear HiringType = "unclear"
)

// AllHiringTypes returns the valid hiring types.
func AllHiringTypes() []HiringType {
	return []HiringType{HiringAgency, HiringInHouse, HiringUnclear}
}

// Verdict is the validated output of one intent classification.
type Verdict struct {
	IsLead            bool        `json:"is_lead"`
	Confidence        float64     `json:"confidence"`
	Quality           LeadQuality `json:"quality"`
	HiringType        HiringType  `json:"hiring_type"`
	Reasoning         string      `json:"reasoning"`
	UrgencyIndicators []string    `json:"urgency_indicators,omitempty"`
	BudgetMentions    []string    `json:"budget_mentions,omitempty"`
	RedFlags          []string    `json:"red_flags,omitempty"`
	IndustryMatch     string      `json:"industry_match,omitempty"`
	RoleMatch         bool        `json:"role_match,omitempty"`

	// Fallback marks verdicts synthesized when the classifier was
	// unavailable. The pipeline is fail-open: such posts are kept.
	Fallback bool `json:"fallback,omitempty"`
}
