package engine

import "strings"

// SeverityClassifier assigns a severity to free text. Pluggable so the
// heuristic can be swapped or tested independently of retrieval; it runs
// at capture time only, never against already-classified records.
type SeverityClassifier interface {
	Classify(text string) string
}

// highSeverityTerms indicate damage or hard constraints.
var highSeverityTerms = []string{
	"crash", "data loss", "corrupt", "security", "vulnerability",
	"outage", "destroyed", "deleted production", "never", "critical",
	"broke the build", "regression",
}

// mediumSeverityTerms indicate friction worth remembering.
var mediumSeverityTerms = []string{
	"bug", "error", "fail", "failed", "flaky", "slow", "timeout",
	"deprecated", "workaround", "gotcha", "confusing", "wrong",
}

// KeywordClassifier is the default keyword-match severity heuristic.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, term := range highSeverityTerms {
		if strings.Contains(lower, term) {
			return "high"
		}
	}
	for _, term := range mediumSeverityTerms {
		if strings.Contains(lower, term) {
			return "medium"
		}
	}
	return "low"
}

// InferSeverity classifies text with the default heuristic.
func InferSeverity(text string) string {
	return KeywordClassifier{}.Classify(text)
}
