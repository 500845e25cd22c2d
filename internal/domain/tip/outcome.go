package tip

import "strings"

// Outcome is the settled state of a single betting tip.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeVoid Outcome = "void"
	// OutcomeUnknown covers pending tips and result fields nobody filled in.
	OutcomeUnknown Outcome = ""
)

var winTokens = []string{"green", "win", "acert", "ganh", "vitoria"}
var lossTokens = []string{"red", "loss", "perd", "derrot", "fraca"}
var voidTokens = []string{"void", "push", "cancel", "reemb", "anul"}

// ParseOutcome scans result-field candidates in declaration order and returns
// the first outcome matched. Token priority within one candidate is fixed:
// win before loss before void, so "green (anulada depois)" still reads as win,
// matching how editors actually fill these fields.
func ParseOutcome(candidates ...string) Outcome {
	for _, candidate := range candidates {
		value := NormalizeToken(candidate)
		if value == "" {
			continue
		}
		if containsAny(value, winTokens) {
			return OutcomeWin
		}
		if containsAny(value, lossTokens) {
			return OutcomeLoss
		}
		if containsAny(value, voidTokens) {
			return OutcomeVoid
		}
	}
	return OutcomeUnknown
}

// Settled reports whether the outcome resolved to win, loss or void.
func (o Outcome) Settled() bool {
	return o == OutcomeWin || o == OutcomeLoss || o == OutcomeVoid
}

func containsAny(value string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(value, token) {
			return true
		}
	}
	return false
}
