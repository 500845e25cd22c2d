package tipster

import (
	"sort"
	"time"

	"github.com/guiadoapostador/tipster-api/internal/domain/tip"
)

const (
	// MaxSampleSize caps how many tips a single aggregation may consume.
	MaxSampleSize = 500
	// trailingWindowSize is the recent-form sub-sample.
	trailingWindowSize = 10
)

// Sample is the performance summary over one bounded set of tips.
// HitPct and ROIPct are 0, not NaN, when their denominators are zero;
// "no data" is signaled by Settled==0.
type Sample struct {
	Sports      []tip.Sport
	Size        int
	Settled     int
	Wins        int
	Losses      int
	Pushes      int
	StakeTotal  float64
	ProfitTotal float64
	HitPct      float64
	ROIPct      float64
	LastDate    *time.Time
}

// Performance pairs the full-sample stats with the trailing recent-form
// window, both computed from the same most-recent-first slice.
type Performance struct {
	Overall Sample
	Last10  Sample
}

// ClampSampleSize normalizes a caller-supplied sample cap to [1, MaxSampleSize].
func ClampSampleSize(last int) int {
	if last < 1 {
		return 1
	}
	if last > MaxSampleSize {
		return MaxSampleSize
	}
	return last
}

// Aggregate folds tips (assumed ordered most-recent-first) into performance
// stats for at most `last` items plus the trailing window over the first 10.
func Aggregate(tips []tip.Tip, last int) Performance {
	last = ClampSampleSize(last)
	if last > len(tips) {
		last = len(tips)
	}
	sample := tips[:last]

	trailing := len(sample)
	if trailing > trailingWindowSize {
		trailing = trailingWindowSize
	}

	return Performance{
		Overall: fold(sample),
		Last10:  fold(sample[:trailing]),
	}
}

func fold(tips []tip.Tip) Sample {
	out := Sample{Size: len(tips)}
	sports := make(map[tip.Sport]struct{}, 4)

	for _, item := range tips {
		sports[tip.ClassifySportOrDefault(item.SportSignal())] = struct{}{}

		if published, ok := item.PublishedAt(); ok {
			if out.LastDate == nil || published.After(*out.LastDate) {
				value := published
				out.LastDate = &value
			}
		}

		outcome := tip.ParseOutcome(item.OutcomeCandidates()...)
		switch outcome {
		case tip.OutcomeWin:
			out.Wins++
		case tip.OutcomeLoss:
			out.Losses++
		case tip.OutcomeVoid:
			out.Pushes++
		}

		if ret, ok := tip.InferReturn(item, outcome); ok {
			out.ProfitTotal += ret.Profit
			out.StakeTotal += ret.Stake
		}
	}

	out.Settled = out.Wins + out.Losses + out.Pushes
	if out.Settled > 0 {
		out.HitPct = float64(out.Wins) / float64(out.Settled) * 100
	}
	if out.StakeTotal > 0 {
		out.ROIPct = out.ProfitTotal / out.StakeTotal * 100
	}

	out.Sports = make([]tip.Sport, 0, len(sports))
	for sport := range sports {
		out.Sports = append(out.Sports, sport)
	}
	sort.Slice(out.Sports, func(i, j int) bool { return out.Sports[i] < out.Sports[j] })

	return out
}
