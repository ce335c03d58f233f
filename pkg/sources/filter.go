package sources

import (
	"encoding/json"
	"strings"

	"jobtrack/pkg/models"
)

var newGradKeywords = []string{
	"new grad", "early career", "entry", "junior", "associate",
	"0-2 years", "0-3 years", "recent graduate", "entry-level",
	"university grad", "campus",
}

var newGradExclude = []string{
	"senior", "staff", "principal", "lead", "manager", "3+", "5+",
}

// FilterNewGrad keeps postings that mention an entry-level marker in the
// title or description and carry no senior marker in the title.
func FilterNewGrad(jobs []models.JobPosting) []models.JobPosting {
	var out []models.JobPosting
	for _, job := range jobs {
		title := strings.ToLower(job.Title)
		desc := strings.ToLower(job.Description)

		hasNewGrad := false
		for _, kw := range newGradKeywords {
			if strings.Contains(title, kw) || strings.Contains(desc, kw) {
				hasNewGrad = true
				break
			}
		}
		if !hasNewGrad {
			continue
		}

		hasSenior := false
		for _, kw := range newGradExclude {
			if strings.Contains(title, kw) {
				hasSenior = true
				break
			}
		}
		if !hasSenior {
			out = append(out, job)
		}
	}
	return out
}

// normalizeLocation flattens the location shapes seen across boards: plain
// strings, JSON-LD address objects, arrays of either, and stringified JSON.
func normalizeLocation(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var decoded any
			// Some feeds ship single-quoted pseudo JSON.
			candidate := strings.ReplaceAll(trimmed, "'", `"`)
			if err := json.Unmarshal([]byte(candidate), &decoded); err == nil {
				return normalizeLocation(decoded)
			}
		}
		return trimmed
	case map[string]any:
		return formatAddress(v)
	case []any:
		var parts []string
		for _, item := range v {
			if s := normalizeLocation(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

func formatAddress(obj map[string]any) string {
	addr := obj
	if nested, ok := obj["address"].(map[string]any); ok {
		addr = nested
	}
	var parts []string
	pick := func(keys ...string) {
		for _, key := range keys {
			if s, ok := addr[key].(string); ok && s != "" {
				parts = append(parts, s)
				return
			}
		}
	}
	pick("addressLocality", "city")
	pick("addressRegion", "state", "region")
	pick("addressCountry", "country")
	return strings.Join(parts, ", ")
}

// isoDateOnly trims an ISO timestamp down to its date part.
func isoDateOnly(s string) string {
	if i := strings.Index(s, "T"); i > 0 {
		return s[:i]
	}
	return s
}

// stringField walks a loosely typed JSON object through a list of fallback
// keys and returns the first non-empty string.
func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func anyField(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
