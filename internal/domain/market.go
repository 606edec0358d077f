package domain

import "time"

// Market is a binary prediction market as seen by the swipe feed.
type Market struct {
	ConditionID string
	Question    string
	Slug        string
	Category    string
	EndDate     time.Time
	// MarketMaker is the FPMM contract that settles buys for this market.
	MarketMaker string
	Tokens      [2]Token
	Active      bool
	Closed      bool
	// Resolved is set once the oracle has reported an outcome, even if the
	// market has not been closed yet.
	Resolved bool
}

// Token is one of the two outcomes of the market (YES/NO).
type Token struct {
	TokenID string
	Outcome string // "Yes" | "No"
	Price   float64
}

// IsLive returns true if the market still accepts new positions.
func (m Market) IsLive() bool {
	return m.Active && !m.Closed && !m.Resolved
}

// HoursToResolution returns the hours until the market's end date.
// Returns 0 if EndDate is not set or already passed.
func (m Market) HoursToResolution() float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	h := time.Until(m.EndDate).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// YesToken returns the YES token of the market.
func (m Market) YesToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "Yes" {
			return t
		}
	}
	return m.Tokens[0]
}

// NoToken returns the NO token of the market.
func (m Market) NoToken() Token {
	for _, t := range m.Tokens {
		if t.Outcome == "No" {
			return t
		}
	}
	return m.Tokens[1]
}

// SettlementTarget is what a validated market resolves to: the contract a
// buy call is sent to.
type SettlementTarget struct {
	MarketID string
	Question string
	Contract string
}

// TruncateQuestion returns the question truncated to maxLen characters.
// Falls back to the first characters of the conditionID if the question is empty.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := question
	if q == "" {
		if len(conditionID) > 20 {
			q = conditionID[:20] + "..."
		} else {
			q = conditionID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
