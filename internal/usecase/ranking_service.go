package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/guiadoapostador/tipster-api/internal/domain/tip"
	"github.com/guiadoapostador/tipster-api/internal/domain/tipster"
	"github.com/guiadoapostador/tipster-api/internal/platform/logging"
)

const (
	OrderByROI = "roi"
	OrderByHit = "hit"

	SportFilterAll = "all"
	PeriodAll      = "all"

	defaultRankingLast  = 20
	defaultRankingLimit = 6
	maxRankingLimit     = 50
	defaultStatsLast    = 50

	defaultRankingWorkers = 8
	maxRankingWorkers     = 32

	// sportScanDepth is how many tips to request when a sport filter is
	// active: the recency cap applies after filtering, so the scan must
	// cover everything the pager's page ceiling can reach.
	sportScanDepth = 1000
)

var periodPattern = regexp.MustCompile(`^(\d{1,4})d$`)

type RankingQuery struct {
	Sport  string
	Period string
	Order  string
	Last   int
	Limit  int
	Slugs  []string
}

// RankingRow is one tipster plus the performance computed from their feed.
// Degraded rows kept their roster entry but could not be scored; they rank at
// the bottom with zero stats instead of failing the whole listing.
type RankingRow struct {
	Tipster       tipster.Tipster
	Performance   tipster.Performance
	TotalTips     int
	TotalArticles int
	Partial       bool
	Degraded      bool
}

type RankingResult struct {
	Rows         []RankingRow
	Query        RankingQuery
	RosterSource RosterSource
	GeneratedAt  time.Time
}

type RankingService struct {
	provider  ContentProvider
	directory *DirectoryService
	logger    *logging.Logger
	workers   int
	now       func() time.Time
}

func NewRankingService(provider ContentProvider, directory *DirectoryService, logger *logging.Logger, workers int) *RankingService {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = defaultRankingWorkers
	}
	if workers > maxRankingWorkers {
		workers = maxRankingWorkers
	}
	return &RankingService{
		provider:  provider,
		directory: directory,
		logger:    logger,
		workers:   workers,
		now:       time.Now,
	}
}

// Rank resolves the roster, scores every tipster concurrently and returns the
// ordered leaderboard.
func (s *RankingService) Rank(ctx context.Context, query RankingQuery) (RankingResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.Rank")
	defer span.End()

	if s.provider == nil || s.directory == nil {
		return RankingResult{}, fmt.Errorf("%w: ranking service is not fully configured", ErrDependencyUnavailable)
	}

	query, cutoff, err := s.normalizeQuery(query)
	if err != nil {
		return RankingResult{}, err
	}

	roster, err := s.directory.Resolve(ctx)
	if err != nil {
		return RankingResult{}, err
	}

	sport := tip.Sport("")
	if query.Sport != SportFilterAll {
		sport = tip.Sport(query.Sport)
	}

	targets := filterRosterBySlugs(roster.Tipsters, query.Slugs)
	rows, err := s.scoreAll(ctx, targets, query.Last, cutoff, sport)
	if err != nil {
		return RankingResult{}, err
	}

	sortRankingRows(rows, query.Order)
	if len(rows) > query.Limit {
		rows = rows[:query.Limit]
	}

	return RankingResult{
		Rows:         rows,
		Query:        query,
		RosterSource: roster.Source,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

// StatsQuery narrows the single-tipster profile computation the same way the
// listing query does.
type StatsQuery struct {
	Slug   string
	Last   int
	Sport  string
	Period string
}

// StatsBySlug computes one tipster's performance for the profile endpoint.
func (s *RankingService) StatsBySlug(ctx context.Context, query StatsQuery) (RankingRow, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.StatsBySlug")
	defer span.End()

	if s.provider == nil || s.directory == nil {
		return RankingRow{}, fmt.Errorf("%w: ranking service is not fully configured", ErrDependencyUnavailable)
	}

	sportToken, err := normalizeSport(query.Sport)
	if err != nil {
		return RankingRow{}, err
	}
	sport := tip.Sport("")
	if sportToken != SportFilterAll {
		sport = tip.Sport(sportToken)
	}

	_, cutoff, err := s.normalizePeriod(query.Period)
	if err != nil {
		return RankingRow{}, err
	}

	last := query.Last
	if last <= 0 {
		last = defaultStatsLast
	}
	last = tipster.ClampSampleSize(last)

	target, err := s.directory.FindBySlug(ctx, query.Slug)
	if err != nil {
		return RankingRow{}, err
	}

	row := s.score(ctx, target, last, cutoff, sport)
	if row.Degraded && ctx.Err() != nil {
		return RankingRow{}, ctx.Err()
	}
	return row, nil
}

func (s *RankingService) scoreAll(ctx context.Context, targets []tipster.Tipster, last int, cutoff time.Time, sport tip.Sport) ([]RankingRow, error) {
	rows := make([]RankingRow, len(targets))
	if len(targets) == 0 {
		return rows, nil
	}

	workers := s.workers
	if workers > len(targets) {
		workers = len(targets)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workersWG sync.WaitGroup
	for i, target := range targets {
		i, target := i, target
		workersWG.Add(1)
		if err := pool.Submit(func() {
			defer workersWG.Done()
			rows[i] = s.score(ctx, target, last, cutoff, sport)
		}); err != nil {
			workersWG.Done()
			workersWG.Wait()
			return nil, fmt.Errorf("submit scoring task: %w", err)
		}
	}
	workersWG.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return rows, nil
}

// score fetches one tipster's feed and the two lifetime counts in parallel,
// then folds the feed into performance stats. When a sport filter is set only
// tips classified into that sport enter the sample. Any upstream failure
// degrades the row to zero stats instead of propagating.
func (s *RankingService) score(ctx context.Context, target tipster.Tipster, last int, cutoff time.Time, sport tip.Sport) RankingRow {
	row := RankingRow{Tipster: target}
	if target.ID <= 0 {
		s.logger.WarnContext(ctx, "tipster has no author id, serving zero stats", "slug", target.Slug)
		row.Degraded = true
		return row
	}

	var feed TipFeed
	var feedErr error
	var total int
	var totalErr error
	var articles int
	var articlesErr error

	need := last
	if sport != "" {
		need = sportScanDepth
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		feed, feedErr = s.provider.FetchAuthorTips(ctx, target.ID, need, cutoff)
	})
	wg.Go(func() {
		total, totalErr = s.provider.CountAuthorPosts(ctx, target.ID)
	})
	wg.Go(func() {
		articles, articlesErr = s.provider.CountAuthorArticles(ctx, target.ID)
	})
	wg.Wait()

	if feedErr != nil {
		s.logger.WarnContext(ctx, "tipster feed unavailable, serving zero stats",
			"tipster_id", target.ID,
			"slug", target.Slug,
			"error", feedErr,
		)
		row.Degraded = true
		return row
	}

	sample := feed.Tips
	if !cutoff.IsZero() {
		// pagers stop on the first stale tip, but a mixed page can still
		// carry entries published before the cutoff
		sample = filterTipsSince(sample, cutoff)
	}
	if sport != "" {
		sample = filterTipsBySport(sample, sport)
	}

	row.Performance = tipster.Aggregate(sample, last)
	row.Partial = feed.Partial
	row.TotalTips = feed.Total
	if totalErr == nil && total > row.TotalTips {
		row.TotalTips = total
	}
	if articlesErr == nil {
		row.TotalArticles = articles
	}
	return row
}

func (s *RankingService) normalizeQuery(query RankingQuery) (RankingQuery, time.Time, error) {
	query.Order = strings.ToLower(strings.TrimSpace(query.Order))
	switch query.Order {
	case "":
		query.Order = OrderByROI
	case OrderByROI, OrderByHit:
	default:
		return RankingQuery{}, time.Time{}, fmt.Errorf("%w: unsupported order=%s", ErrInvalidInput, query.Order)
	}

	sport, err := normalizeSport(query.Sport)
	if err != nil {
		return RankingQuery{}, time.Time{}, err
	}
	query.Sport = sport

	if query.Last <= 0 {
		query.Last = defaultRankingLast
	}
	query.Last = tipster.ClampSampleSize(query.Last)

	if query.Limit <= 0 {
		query.Limit = defaultRankingLimit
	}
	if query.Limit > maxRankingLimit {
		query.Limit = maxRankingLimit
	}

	slugs := make([]string, 0, len(query.Slugs))
	for _, slug := range query.Slugs {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug != "" {
			slugs = append(slugs, slug)
		}
	}
	query.Slugs = slugs

	period, cutoff, err := s.normalizePeriod(query.Period)
	if err != nil {
		return RankingQuery{}, time.Time{}, err
	}
	query.Period = period

	return query, cutoff, nil
}

func normalizeSport(raw string) (string, error) {
	sport := tip.NormalizeToken(raw)
	if sport == "" {
		return SportFilterAll, nil
	}
	if sport != SportFilterAll {
		if _, ok := tip.AllSports[tip.Sport(sport)]; !ok {
			return "", fmt.Errorf("%w: unsupported sport=%s", ErrInvalidInput, sport)
		}
	}
	return sport, nil
}

func (s *RankingService) normalizePeriod(raw string) (string, time.Time, error) {
	period := strings.ToLower(strings.TrimSpace(raw))
	if period == "" || period == PeriodAll {
		return PeriodAll, time.Time{}, nil
	}

	match := periodPattern.FindStringSubmatch(period)
	if match == nil {
		return "", time.Time{}, fmt.Errorf("%w: unsupported period=%s (want all or <days>d)", ErrInvalidInput, period)
	}
	days, err := strconv.Atoi(match[1])
	if err != nil || days <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: unsupported period=%s", ErrInvalidInput, period)
	}
	return period, s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour), nil
}

func filterRosterBySlugs(items []tipster.Tipster, slugs []string) []tipster.Tipster {
	if len(slugs) == 0 {
		return items
	}
	wanted := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		wanted[slug] = struct{}{}
	}
	out := make([]tipster.Tipster, 0, len(slugs))
	for _, item := range items {
		if _, ok := wanted[strings.ToLower(item.Slug)]; ok {
			out = append(out, item)
		}
	}
	return out
}

// filterTipsSince keeps tips published on or after the cutoff. Undated tips
// stay in, their age cannot be judged.
func filterTipsSince(tips []tip.Tip, cutoff time.Time) []tip.Tip {
	out := make([]tip.Tip, 0, len(tips))
	for _, item := range tips {
		if published, ok := item.PublishedAt(); ok && published.Before(cutoff) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// filterTipsBySport keeps tips whose signal detects as the requested sport.
// Detection is strict here: a tip without a recognizable signal never matches
// a sport filter.
func filterTipsBySport(tips []tip.Tip, sport tip.Sport) []tip.Tip {
	out := make([]tip.Tip, 0, len(tips))
	for _, item := range tips {
		if detected, ok := tip.DetectSport(item.SportSignal()); ok && detected == sport {
			out = append(out, item)
		}
	}
	return out
}

func sortRankingRows(rows []RankingRow, order string) {
	metric := func(row RankingRow) float64 {
		if order == OrderByHit {
			return row.Performance.Overall.HitPct
		}
		return row.Performance.Overall.ROIPct
	}

	sort.SliceStable(rows, func(i, j int) bool {
		left, right := rows[i], rows[j]
		leftSettled := left.Performance.Overall.Settled
		rightSettled := right.Performance.Overall.Settled
		// tipsters with no settled sample always sink below scored ones
		if (leftSettled == 0) != (rightSettled == 0) {
			return rightSettled == 0
		}
		if metric(left) != metric(right) {
			return metric(left) > metric(right)
		}
		if leftSettled != rightSettled {
			return leftSettled > rightSettled
		}
		return strings.ToLower(left.Tipster.Slug) < strings.ToLower(right.Tipster.Slug)
	})
}
