package recommend

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// explainInput carries everything the synthesizer references: the
// ensemble outcome, the aggregated sentiment (nil when no readings
// exist), the risk bucket and the freshness of the underlying data.
type explainInput struct {
	Signal          string
	Confidence      float64
	Sentiment       *float64
	RiskLevel       string
	ModelUsed       string
	RSquared        *float64
	SentimentSource string
	SentimentAt     *time.Time
	MarketAt        *time.Time
}

// synthesize builds a short plain-language explanation: one sentence
// for the model signal and confidence, one for sentiment and risk, and
// a trailing data-provenance clause with coarse recency phrases.
func synthesize(in explainInput, now time.Time) string {
	sentimentTrend, sentimentDesc := describeSentiment(in.Sentiment)

	var signalDesc string
	switch strings.ToLower(in.Signal) {
	case "buy":
		signalDesc = "suggests potential price increase"
	case "sell":
		signalDesc = "indicates potential price decrease"
	case "hold":
		signalDesc = "suggests maintaining current position"
	default:
		signalDesc = "indicates a balanced outlook"
	}

	var riskDesc string
	switch strings.ToLower(in.RiskLevel) {
	case "low":
		riskDesc = "low risk"
	case "high":
		riskDesc = "higher risk"
	default:
		riskDesc = "moderate risk"
	}

	rSquaredStr := ""
	if in.RSquared != nil {
		rSquaredStr = fmt.Sprintf(" R²: %.2f", *in.RSquared)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf(
		"Our %s model %s with %d%% confidence (ML model confidence: %.2f%s), "+
			"based on analysis of recent market patterns and historical performance.",
		strings.ReplaceAll(in.ModelUsed, "_", " "), signalDesc,
		int(in.Confidence*100), in.Confidence, rSquaredStr))

	parts = append(parts, fmt.Sprintf(
		"Market analysis shows %s (%s) and %s factors, indicating %s volatility and market conditions.",
		sentimentTrend, sentimentDesc, riskDesc, strings.ToLower(in.RiskLevel)))

	var sources []string
	if in.SentimentAt != nil {
		sourceName := "News articles"
		if in.SentimentSource != "" {
			sourceName = titleWords(strings.ReplaceAll(in.SentimentSource, "_", " "))
		}
		sources = append(sources, fmt.Sprintf("Sentiment from %s (updated %s)", sourceName, formatTimeAgo(*in.SentimentAt, now)))
	}
	if in.MarketAt != nil {
		sources = append(sources, fmt.Sprintf("Market data (updated %s)", formatTimeAgo(*in.MarketAt, now)))
	}
	if in.RSquared != nil {
		sources = append(sources, fmt.Sprintf("ML model confidence: %.2f R²: %.2f", in.Confidence, *in.RSquared))
	} else {
		sources = append(sources, fmt.Sprintf("ML model confidence: %.2f", in.Confidence))
	}
	parts = append(parts, "Data sources: "+strings.Join(sources, ", ")+".")

	explanation := strings.Join(parts, " ")

	words := strings.Fields(explanation)
	if len(words) < minExplanationWords {
		explanation += " This recommendation considers multiple factors to provide a balanced assessment."
	} else if len(words) > maxExplanationWords {
		explanation = strings.Join(words[:maxExplanationWords], " ") + "..."
	}
	return explanation
}

func describeSentiment(score *float64) (trend, desc string) {
	switch {
	case score == nil:
		return "neutral sentiment", "limited sentiment data"
	case *score > 0.1:
		return "positive sentiment trends", "favorable market sentiment"
	case *score < -0.1:
		return "negative sentiment trends", "unfavorable market sentiment"
	default:
		return "neutral sentiment trends", "neutral market sentiment"
	}
}

// formatTimeAgo renders a coarse recency phrase through a single
// cascading threshold ladder.
func formatTimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	minutes := int(diff.Minutes())
	hours := int(diff.Hours())
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%d %s ago", hours, plural("hour", hours))
	default:
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%d %s ago", days, plural("day", days))
	}
}

func plural(unit string, n int) string {
	if n > 1 {
		return unit + "s"
	}
	return unit
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
