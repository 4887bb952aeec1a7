package model

import (
	"fmt"
	"strings"
)

// Verdict is the display category assigned to a finished check.
//
// It is derived purely from keywords in the pipeline's final result text.
// Four values correspond to the verdicts a fact checker can reach; the fifth,
// VerdictDetailedAnalysis, is used when the text contains none of the keywords.
type Verdict string

const (
	// VerdictTrue means the provided information was found to be true.
	VerdictTrue Verdict = "TRUE"

	// VerdictFalse means the provided information was found to be false.
	VerdictFalse Verdict = "FALSE"

	// VerdictPartiallyAccurate means the information is misleading or only partly correct.
	VerdictPartiallyAccurate Verdict = "PARTIALLY_ACCURATE"

	// VerdictInconclusive means the evidence was insufficient to decide.
	VerdictInconclusive Verdict = "INCONCLUSIVE"

	// VerdictDetailedAnalysis means no verdict keyword was found; the user
	// is pointed at the full report instead.
	VerdictDetailedAnalysis Verdict = "DETAILED_ANALYSIS"
)

// AllVerdicts lists every verdict in display order.
var AllVerdicts = []Verdict{
	VerdictTrue,
	VerdictFalse,
	VerdictPartiallyAccurate,
	VerdictInconclusive,
	VerdictDetailedAnalysis,
}

// ClassifyVerdict maps result text to a verdict by case-insensitive
// substring matching. The rules are evaluated in order:
//
//  1. "true" present and neither "false" nor "misleading" present: TRUE
//  2. "false" present: FALSE
//  3. "misleading" or "partially" present: PARTIALLY_ACCURATE
//  4. "inconclusive" present: INCONCLUSIVE
//  5. otherwise: DETAILED_ANALYSIS
//
// Matching is on raw substrings, so "untrue" counts as "true" and
// "not false" counts as "false".
func ClassifyVerdict(result string) Verdict {
	lower := strings.ToLower(result)

	hasTrue := strings.Contains(lower, "true")
	hasFalse := strings.Contains(lower, "false")
	hasMisleading := strings.Contains(lower, "misleading")

	switch {
	case hasTrue && !hasFalse && !hasMisleading:
		return VerdictTrue
	case hasFalse:
		return VerdictFalse
	case hasMisleading || strings.Contains(lower, "partially"):
		return VerdictPartiallyAccurate
	case strings.Contains(lower, "inconclusive"):
		return VerdictInconclusive
	default:
		return VerdictDetailedAnalysis
	}
}

// ParseVerdict converts a verdict name back to a Verdict.
// Matching ignores case and accepts spaces or hyphens in place of underscores.
func ParseVerdict(s string) (Verdict, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, v := range AllVerdicts {
		if string(v) == normalized {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
}

// String returns the verdict name.
func (v Verdict) String() string {
	return string(v)
}

// Banner returns the headline shown above the report for this verdict.
func (v Verdict) Banner() string {
	switch v {
	case VerdictTrue:
		return "✅ VERDICT: THE PROVIDED INFORMATION IS TRUE"
	case VerdictFalse:
		return "❌ VERDICT: THE PROVIDED INFORMATION IS FALSE"
	case VerdictPartiallyAccurate:
		return "⚠️ VERDICT: THE PROVIDED INFORMATION IS PARTIALLY ACCURATE"
	case VerdictInconclusive:
		return "🔍 VERDICT: REQUIRES FURTHER INVESTIGATION"
	default:
		return "📋 DETAILED ANALYSIS AVAILABLE"
	}
}

// Label returns a short human-readable name for the verdict.
func (v Verdict) Label() string {
	switch v {
	case VerdictTrue:
		return "True"
	case VerdictFalse:
		return "False"
	case VerdictPartiallyAccurate:
		return "Partially accurate"
	case VerdictInconclusive:
		return "Inconclusive"
	default:
		return "Detailed analysis"
	}
}

// CSSClass returns the style class used by the HTML result page.
// The detailed-analysis category shares the inconclusive style.
func (v Verdict) CSSClass() string {
	switch v {
	case VerdictTrue:
		return "verdict-true"
	case VerdictFalse:
		return "verdict-false"
	case VerdictPartiallyAccurate:
		return "verdict-partial"
	default:
		return "verdict-inconclusive"
	}
}
