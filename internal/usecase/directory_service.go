package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/guiadoapostador/tipster-api/internal/domain/tip"
	"github.com/guiadoapostador/tipster-api/internal/domain/tipster"
	"github.com/guiadoapostador/tipster-api/internal/platform/cache"
	"github.com/guiadoapostador/tipster-api/internal/platform/logging"
)

type RosterSource string

const (
	// RosterSourceDirectory means the users listing answered directly.
	RosterSourceDirectory RosterSource = "directory"
	// RosterSourcePostMining means authors were recovered from post embeds
	// because the users listing is blocked or empty upstream.
	RosterSourcePostMining RosterSource = "post_mining"
	// RosterSourceUnion means both the listing and post mining contributed
	// entries.
	RosterSourceUnion RosterSource = "union"

	defaultMiningPosts = 300
)

// Roster is the resolved set of tipsters, deduplicated and slug-sorted.
type Roster struct {
	Tipsters []tipster.Tipster
	Source   RosterSource
}

type DirectoryService struct {
	provider    ContentProvider
	logger      *logging.Logger
	roster      *cache.Store
	miningPosts int
}

func NewDirectoryService(provider ContentProvider, rosterCache *cache.Store, logger *logging.Logger) *DirectoryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryService{
		provider:    provider,
		logger:      logger,
		roster:      rosterCache,
		miningPosts: defaultMiningPosts,
	}
}

// Resolve builds the tipster roster. The direct users listing is preferred;
// post mining runs only when the listing fails or comes back empty. Resolved
// rosters are cached for the store TTL when a cache is configured.
func (s *DirectoryService) Resolve(ctx context.Context) (Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DirectoryService.Resolve")
	defer span.End()

	return s.cached(ctx, "roster", s.resolveUncached)
}

// ResolveAll unions the direct listing with mined post authors, deduplicated
// by id (slug when the id is absent) with listing fields winning. Serves the
// roster index, where authors visible only through their posts still belong.
func (s *DirectoryService) ResolveAll(ctx context.Context) (Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DirectoryService.ResolveAll")
	defer span.End()

	return s.cached(ctx, "roster_all", s.resolveAllUncached)
}

func (s *DirectoryService) cached(ctx context.Context, key string, load func(context.Context) (Roster, error)) (Roster, error) {
	if s.roster == nil {
		return load(ctx)
	}

	value, err := s.roster.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return Roster{}, err
	}
	roster, ok := value.(Roster)
	if !ok {
		return load(ctx)
	}
	return roster, nil
}

// rosterBuilder merges candidates by identity key. The first occurrence of a
// key wins, later duplicates only fill fields it left empty.
type rosterBuilder struct {
	merged map[string]tipster.Tipster
	order  []string
}

func newRosterBuilder(capacity int) *rosterBuilder {
	return &rosterBuilder{
		merged: make(map[string]tipster.Tipster, capacity),
		order:  make([]string, 0, capacity),
	}
}

func (b *rosterBuilder) add(candidate tipster.Tipster) {
	if candidate.Validate() != nil {
		return
	}
	key := candidate.Key()
	if existing, ok := b.merged[key]; ok {
		b.merged[key] = existing.Merge(candidate)
		return
	}
	b.merged[key] = candidate
	b.order = append(b.order, key)
}

func (b *rosterBuilder) addMined(posts []tip.Tip) {
	for _, post := range posts {
		author := post.EmbeddedAuthor()
		if author == nil {
			continue
		}
		b.add(tipster.FromUserDoc(author))
	}
}

func (b *rosterBuilder) size() int {
	return len(b.order)
}

func (b *rosterBuilder) roster(source RosterSource) Roster {
	out := Roster{
		Tipsters: make([]tipster.Tipster, 0, len(b.order)),
		Source:   source,
	}
	for _, key := range b.order {
		out.Tipsters = append(out.Tipsters, b.merged[key])
	}
	sort.SliceStable(out.Tipsters, func(i, j int) bool {
		left := strings.ToLower(out.Tipsters[i].Slug)
		right := strings.ToLower(out.Tipsters[j].Slug)
		if left != right {
			return left < right
		}
		return out.Tipsters[i].ID < out.Tipsters[j].ID
	})
	return out
}

func (s *DirectoryService) listDirect(ctx context.Context, builder *rosterBuilder) error {
	direct, err := s.provider.ListAuthors(ctx)
	if err != nil {
		return err
	}
	for _, item := range direct {
		builder.add(s.enrichAuthor(ctx, item))
	}
	return nil
}

func (s *DirectoryService) resolveUncached(ctx context.Context) (Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DirectoryService.resolveUncached")
	defer span.End()

	if s.provider == nil {
		return Roster{}, fmt.Errorf("%w: content provider is not configured", ErrDependencyUnavailable)
	}

	builder := newRosterBuilder(16)
	directErr := s.listDirect(ctx, builder)
	if directErr != nil {
		if ctx.Err() != nil {
			return Roster{}, ctx.Err()
		}
		s.logger.WarnContext(ctx, "author listing unavailable, mining post embeds", "error", directErr)
	}

	if builder.size() > 0 {
		return builder.roster(RosterSourceDirectory), nil
	}

	posts, err := s.provider.MineAuthors(ctx, s.miningPosts)
	if err != nil {
		if directErr != nil {
			return Roster{}, fmt.Errorf("%w: author roster is unavailable: %v", ErrDependencyUnavailable, err)
		}
		return Roster{}, fmt.Errorf("mine authors: %w", err)
	}
	builder.addMined(posts)
	return builder.roster(RosterSourcePostMining), nil
}

func (s *DirectoryService) resolveAllUncached(ctx context.Context) (Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DirectoryService.resolveAllUncached")
	defer span.End()

	if s.provider == nil {
		return Roster{}, fmt.Errorf("%w: content provider is not configured", ErrDependencyUnavailable)
	}

	builder := newRosterBuilder(16)
	directErr := s.listDirect(ctx, builder)
	if directErr != nil {
		if ctx.Err() != nil {
			return Roster{}, ctx.Err()
		}
		s.logger.WarnContext(ctx, "author listing unavailable, serving mined roster only", "error", directErr)
	}
	directCount := builder.size()

	posts, minedErr := s.provider.MineAuthors(ctx, s.miningPosts)
	if minedErr != nil {
		if ctx.Err() != nil {
			return Roster{}, ctx.Err()
		}
		if directErr != nil {
			return Roster{}, fmt.Errorf("%w: author roster is unavailable: %v", ErrDependencyUnavailable, minedErr)
		}
		s.logger.WarnContext(ctx, "author mining unavailable, serving listing only", "error", minedErr)
	}
	builder.addMined(posts)

	switch {
	case directErr != nil || directCount == 0:
		return builder.roster(RosterSourcePostMining), nil
	case builder.size() > directCount:
		return builder.roster(RosterSourceUnion), nil
	default:
		return builder.roster(RosterSourceDirectory), nil
	}
}

// enrichAuthor fills a listing entry's avatar from the per-user detail call.
// The collection listing often omits avatar_urls, while the single-user
// document carries them. Enrichment failures keep the bare entry.
func (s *DirectoryService) enrichAuthor(ctx context.Context, item tipster.Tipster) tipster.Tipster {
	if item.AvatarURL != "" || item.ID <= 0 {
		return item
	}
	detail, err := s.provider.GetUser(ctx, item.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "user detail unavailable, keeping listing entry",
			"tipster_id", item.ID,
			"slug", item.Slug,
			"error", err,
		)
		return item
	}
	return item.Merge(detail)
}

// FindBySlug resolves one tipster by slug, case-insensitively. Searches the
// union roster so authors visible only through their posts still resolve.
func (s *DirectoryService) FindBySlug(ctx context.Context, slug string) (tipster.Tipster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DirectoryService.FindBySlug")
	defer span.End()

	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return tipster.Tipster{}, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	roster, err := s.ResolveAll(ctx)
	if err != nil {
		return tipster.Tipster{}, err
	}
	for _, item := range roster.Tipsters {
		if strings.ToLower(item.Slug) == slug {
			return item, nil
		}
	}
	return tipster.Tipster{}, fmt.Errorf("%w: tipster slug=%s", ErrNotFound, slug)
}
