package tip

// Return is the inferred monetary result of one tip, in stake units.
// Profit=0 Stake=0 is the explicit void case and does count toward averages;
// a tip that cannot be inferred at all is excluded via ok=false.
type Return struct {
	Profit float64
	Stake  float64
}

// InferReturn derives profit and stake for a tip. A direct return field wins
// over outcome-based inference; otherwise the outcome decides:
// void is neutral, loss forfeits the stake, win needs odds to price the payout.
func InferReturn(t Tip, outcome Outcome) (Return, bool) {
	stake, hasStake := t.Stake()
	if !hasStake {
		stake = 1
	}

	if direct, ok := t.DirectReturn(); ok {
		return Return{Profit: direct, Stake: stake}, true
	}

	if outcome == OutcomeUnknown {
		return Return{}, false
	}

	switch outcome {
	case OutcomeVoid:
		return Return{Profit: 0, Stake: 0}, true
	case OutcomeLoss:
		return Return{Profit: -stake, Stake: stake}, true
	case OutcomeWin:
		odds, ok := t.Odds()
		if !ok {
			return Return{}, false
		}
		return Return{Profit: (odds - 1) * stake, Stake: stake}, true
	default:
		return Return{}, false
	}
}
