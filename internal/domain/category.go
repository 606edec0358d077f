package domain

import (
	"fmt"
	"strings"
)

// categoryLabel formats the short label shown next to a market in the feed.
type categoryLabel func(m Market) string

var categoryLabels = map[string]categoryLabel{
	"sports": func(m Market) string {
		return "[SPT] " + TruncateQuestion(m.Question, m.ConditionID, 40)
	},
	"crypto": func(m Market) string {
		return "[CRY] " + TruncateQuestion(m.Question, m.ConditionID, 40)
	},
	"politics": func(m Market) string {
		return "[POL] " + TruncateQuestion(m.Question, m.ConditionID, 40)
	},
}

// MarketLabel dispatches on the market's category. Unknown categories get a
// generic label with the hours left.
func MarketLabel(m Market) string {
	if f, ok := categoryLabels[strings.ToLower(m.Category)]; ok {
		return f(m)
	}
	label := TruncateQuestion(m.Question, m.ConditionID, 40)
	if h := m.HoursToResolution(); h > 0 {
		return fmt.Sprintf("%s (%.0fh)", label, h)
	}
	return label
}
