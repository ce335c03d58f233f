package scorer

import (
	"regexp"
	"strings"
)

// dealbreakerPatterns flag citizenship, clearance, and no-sponsorship
// language that makes a posting unusable regardless of fit.
var dealbreakerPatterns = compileAll([]string{
	`u\.?s\.?\s*citizen(?:ship)?(?:\s+(?:is\s+)?required)?`,
	`must\s+be\s+(?:a\s+)?u\.?s\.?\s*citizen`,
	`(?:requires?|must\s+have)\s+(?:active\s+)?(?:security|secret|top\s*secret|ts[/ ]sci)\s*clearance`,
	`clearance\s+(?:is\s+)?required`,
	`(?:only|must)\s+(?:be\s+)?(?:authorized|eligible)\s+to\s+work.*?(?:without|no)\s+(?:need\s+for\s+)?sponsor`,
	`(?:unable|not\s+able|cannot|will\s+not|won't)\s+(?:to\s+)?(?:provide\s+)?(?:sponsor|visa)`,
	`no\s+(?:visa\s+)?sponsor(?:ship)?`,
	`(?:not|no)\s+(?:currently\s+)?sponsor(?:ing)?`,
	`(?:permanent\s+resident|green\s*card)\s+(?:is\s+)?required`,
	`must\s+(?:already\s+)?(?:be|have)\s+(?:legally\s+)?(?:authorized|eligible)\s+to\s+work`,
	`(?:only\s+)?(?:us|u\.s\.?)\s+(?:persons?|nationals?|residents?)\s+(?:may|can|should)\s+apply`,
	`ead\s+(?:card\s+)?(?:or\s+)?(?:gc|green\s*card)\s+(?:holder|required)`,
})

// sponsorshipPositivePatterns detect explicit sponsorship offers, which
// override a dealbreaker hit and earn a bonus.
var sponsorshipPositivePatterns = compileAll([]string{
	`(?:visa|h-?1b|h1b)\s+sponsor(?:ship)?(?:\s+(?:available|offered|provided))?`,
	`(?:we|will|can|do)\s+sponsor`,
	`(?:open\s+to|offer|provide)\s+(?:visa\s+)?sponsor(?:ship)?`,
})

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var technicalKeywords = []string{
	"software", "engineer", "developer", "programmer",
	"ml", "machine learning", "ai", "data scientist",
	"backend", "frontend", "full stack", "fullstack", "full-stack",
	"platform", "infrastructure", "devops", "sre", "site reliability",
	"security engineer", "research scientist", "research engineer",
	"data engineer", "analytics engineer", "applied scientist",
	"computer vision", "nlp", "robotics", "systems engineer",
	"cloud engineer", "api engineer", "automation engineer",
}

var nonTechnicalKeywords = []string{
	"sales", "account executive", "business development", "marketing",
	"recruiter", "human resources", "operations manager",
	"customer success", "customer support", "administrative",
	"finance", "accounting", "legal", "compliance",
	"product manager", "project manager", "program manager",
	"mechanical engineer", "civil engineer", "electrical engineer",
	"nurse", "physician", "therapist", "pharmacist",
}

var seniorKeywords = []string{
	"senior", "staff", "principal", "lead", "director", "vp ",
	"manager", "head of", "architect", "5+", "7+", "8+", "10+",
}

var juniorMarkers = []string{
	"new grad", "junior", "entry", "early career", "associate",
	"i ", " i,", " 1 ", " 1,",
}

// Dealbreakers is the result of screening a description for blocking
// language and explicit sponsorship offers.
type Dealbreakers struct {
	Found               bool     `json:"has_dealbreaker"`
	Reasons             []string `json:"reasons,omitempty"`
	SponsorshipPositive bool     `json:"sponsorship_positive"`
}

// CheckDealbreakers screens a description. Only the first blocking match is
// recorded.
func CheckDealbreakers(text string) Dealbreakers {
	lower := strings.ToLower(text)
	var result Dealbreakers

	for _, re := range dealbreakerPatterns {
		if m := re.FindString(lower); m != "" {
			result.Found = true
			result.Reasons = append(result.Reasons, strings.TrimSpace(m))
			break
		}
	}
	for _, re := range sponsorshipPositivePatterns {
		if re.MatchString(lower) {
			result.SponsorshipPositive = true
			break
		}
	}
	return result
}

// IsTechnicalRole reports whether a title names an engineering role at a
// level worth scoring. Senior titles pass only when a junior marker is also
// present ("Senior Software Engineer I" style postings).
func IsTechnicalRole(title string) bool {
	t := strings.ToLower(title)
	if containsAny(t, nonTechnicalKeywords) {
		return false
	}
	if !containsAny(t, juniorMarkers) && containsAny(t, seniorKeywords) {
		return false
	}
	return containsAny(t, technicalKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
