package classifier

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert at analyzing social media posts to identify genuine PR agency leads. Always respond with valid JSON only.`

const userPromptTemplate = `Analyze this social media post to determine if the author is a GENUINE LEAD for a PR agency.

POST CONTENT: %q
AUTHOR: %s
AUTHOR TITLE: %s

EVALUATION CRITERIA (be PERMISSIVE - when in doubt, qualify as lead):

1. AGENCY vs IN-HOUSE HIRING (PRIMARY FILTER):
   - Are they seeking an EXTERNAL PR AGENCY/FIRM? ACCEPT
   - Or looking to hire IN-HOUSE employees? REJECT
   - Key signals: "agency", "firm", "partner", "vendor" vs "hire", "employee", "join our team"

2. AUTHOR LEGITIMACY (FLEXIBLE):
   - Decision makers (CEO, Founder, CMO, Marketing roles) ACCEPT
   - PREFERRED roles: %s
   - But also accept other business decision makers
   - REJECT: PR professionals/agencies offering services

3. BUSINESS RELEVANCE (BROAD):
   - Any business needing PR services ACCEPT
   - IDEAL industries: %s
   - But don't reject other businesses unless clearly B2B services

4. INTENT SIGNALS (PERMISSIVE):
   - Any mention of PR/communications needs ACCEPT
   - Keywords help: %s
   - Include posts about: launches, funding, crises, growth, rebranding

5. CLEAR REJECTIONS ONLY:
   - PR agencies offering services
   - In-house job postings
   - Obvious spam/irrelevant content

BIAS TOWARD ACCEPTANCE: If there's any reasonable chance this is a potential client, mark as genuine lead.

Respond with JSON only:
{
    "is_genuine_lead": true/false,
    "confidence_score": 0-100,
    "lead_quality": "hot/warm/cold",
    "hiring_type": "agency/in-house/unclear",
    "reasoning": "2-3 sentence explanation",
    "urgency_indicators": ["specific", "signals"],
    "industry_match": "specific industry if identifiable",
    "target_role_match": true/false,
    "budget_mentions": ["any budget/timeline hints"],
    "red_flags": ["any concerning signals"]
}`

func buildPrompt(content, authorName, authorTitle string, p Prompts) string {
	return fmt.Sprintf(userPromptTemplate,
		content,
		authorName,
		authorTitle,
		strings.Join(p.Roles, ", "),
		strings.Join(p.Categories, ", "),
		strings.Join(p.Keywords, ", "),
	)
}

// Prompts carries the configured term lists injected into the prompt as
// soft guidance for the model.
type Prompts struct {
	Keywords   []string
	Roles      []string
	Categories []string
}
