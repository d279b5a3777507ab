package recommend

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minExplanationWords     = 50
	maxExplanationWords     = 200
	minExplanationSentences = 2
	maxExplanationSentences = 4
)

var (
	sentimentKeywords = []string{"sentiment", "positive", "negative", "neutral", "favorable", "unfavorable"}
	mlKeywords        = []string{"model", "confidence", "ml", "prediction", "signal", "buy", "sell", "hold"}
	riskKeywords      = []string{"risk", "volatility", "uncertainty", "low risk", "medium risk", "high risk", "moderate risk"}
	technicalJargon   = []string{"r²", "r-squared", "r2", "neural network", "random forest", "ensemble"}

	// Sentence boundaries are periods followed by whitespace or end of
	// string, which leaves decimals like 0.85 intact.
	sentenceBoundary = regexp.MustCompile(`\.(\s+|$)`)
)

// Validation is the quality report for one explanation.
type Validation struct {
	Valid           bool     `json:"is_valid"`
	Warnings        []string `json:"warnings"`
	WordCount       int      `json:"word_count"`
	SentenceCount   int      `json:"sentence_count"`
	HasSentimentRef bool     `json:"has_sentiment_ref"`
	HasSignalRef    bool     `json:"has_ml_signal_ref"`
	HasRiskRef      bool     `json:"has_risk_ref"`
	HasDataSources  bool     `json:"has_data_sources"`
}

// ValidateExplanation scores an explanation against the acceptance
// criteria: word and sentence counts, presence of sentiment, signal and
// risk references, a data-source clause, and limited technical jargon.
// Failures are warnings, not errors; the explanation is used either way.
func ValidateExplanation(explanation string) Validation {
	v := Validation{
		WordCount: len(strings.Fields(explanation)),
	}

	for _, fragment := range sentenceBoundary.Split(explanation, -1) {
		if len(strings.TrimSpace(fragment)) > 10 {
			v.SentenceCount++
		}
	}

	if v.WordCount < minExplanationWords {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Explanation too short: %d words (minimum %d)", v.WordCount, minExplanationWords))
	} else if v.WordCount > maxExplanationWords {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Explanation too long: %d words (maximum %d)", v.WordCount, maxExplanationWords))
	}

	if v.SentenceCount < minExplanationSentences {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Explanation has too few sentences: %d (minimum %d)", v.SentenceCount, minExplanationSentences))
	} else if v.SentenceCount > maxExplanationSentences {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Explanation has too many sentences: %d (recommended 2-3)", v.SentenceCount))
	}

	lower := strings.ToLower(explanation)

	v.HasSentimentRef = containsAny(lower, sentimentKeywords)
	if !v.HasSentimentRef {
		v.Warnings = append(v.Warnings, "Explanation missing sentiment trend references")
	}
	v.HasSignalRef = containsAny(lower, mlKeywords)
	if !v.HasSignalRef {
		v.Warnings = append(v.Warnings, "Explanation missing ML model signal references")
	}
	v.HasRiskRef = containsAny(lower, riskKeywords)
	if !v.HasRiskRef {
		v.Warnings = append(v.Warnings, "Explanation missing risk factor references")
	}
	v.HasDataSources = strings.Contains(lower, "data source") ||
		strings.Contains(lower, "updated") || strings.Contains(lower, "timestamp")
	if !v.HasDataSources {
		v.Warnings = append(v.Warnings, "Explanation missing data source attribution or timestamps")
	}

	jargonCount := 0
	for _, term := range technicalJargon {
		if strings.Contains(lower, term) {
			jargonCount++
		}
	}
	if jargonCount > 2 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Explanation may contain too much technical jargon (%d technical terms)", jargonCount))
	}

	// Length, sentence-count and jargon warnings all phrase the problem
	// with "too"; missing-reference warnings stay advisory.
	v.Valid = true
	for _, w := range v.Warnings {
		if strings.Contains(strings.ToLower(w), "too") {
			v.Valid = false
			break
		}
	}
	return v
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
