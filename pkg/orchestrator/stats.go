package orchestrator

import "strings"

// AverageTokenLength returns the average whitespace-delimited token count of
// texts, used by downstream lexical scorers. A caller-supplied override is
// returned verbatim, including an explicit zero. An empty batch yields 0.0;
// the guard avoids dividing by zero.
func AverageTokenLength(texts []string, override *float64) float64 {
	if override != nil {
		return *override
	}
	if len(texts) == 0 {
		return 0.0
	}
	total := 0
	for _, text := range texts {
		total += len(strings.Fields(text))
	}
	return float64(total) / float64(len(texts))
}
