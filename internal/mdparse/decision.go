package mdparse

import (
	"encoding/json"
	"regexp"
	"strings"
)

type Decision string

const (
	DecisionNone Decision = ""
	DecisionBuy  Decision = "BUY"
	DecisionHold Decision = "HOLD"
	DecisionSell Decision = "SELL"
)

// ParseDecision accepts any casing of BUY, HOLD or SELL.
func ParseDecision(s string) Decision {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(s))); d {
	case DecisionBuy, DecisionHold, DecisionSell:
		return d
	}
	return DecisionNone
}

func (d Decision) Valid() bool {
	return d == DecisionBuy || d == DecisionHold || d == DecisionSell
}

func (d Decision) String() string {
	if d == DecisionNone {
		return "N/A"
	}
	return string(d)
}

// MarshalJSON encodes DecisionNone as null.
func (d Decision) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = DecisionNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDecision(s)
	return nil
}

// Ordered most specific first. The first pattern that matches anywhere wins,
// even when a later pattern matches earlier in the text.
var decisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)FINAL TRANSACTION PROPOSAL:\s*\*\*(BUY|HOLD|SELL)\*\*`),
	regexp.MustCompile(`(?i)FINAL TRANSACTION PROPOSAL:\s*(BUY|HOLD|SELL)`),
	regexp.MustCompile(`(?i)Decision:\s*\*\*(BUY|HOLD|SELL)\*\*`),
	regexp.MustCompile(`(?i)\*\*_(BUY|HOLD|SELL)_\*\*`),
}

// ExtractDecision returns the trading decision tagged in a report, or DecisionNone.
func ExtractDecision(text string) Decision {
	if text == "" {
		return DecisionNone
	}
	for _, re := range decisionPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return Decision(strings.ToUpper(m[1]))
		}
	}
	return DecisionNone
}
