package usecase

import (
	"context"
	"time"

	"github.com/guiadoapostador/tipster-api/internal/domain/tip"
	"github.com/guiadoapostador/tipster-api/internal/domain/tipster"
)

// TipFeed is the bounded result of walking one author's tip pages. Partial is
// set when a mid-walk page failed and the collected prefix is served anyway.
type TipFeed struct {
	Tips    []tip.Tip
	Total   int
	Partial bool
}

// ContentProvider is the upstream content installation the rankings are
// computed from.
type ContentProvider interface {
	ListAuthors(ctx context.Context) ([]tipster.Tipster, error)
	GetUser(ctx context.Context, id int64) (tipster.Tipster, error)
	FetchAuthorTips(ctx context.Context, authorID int64, need int, cutoff time.Time) (TipFeed, error)
	MineAuthors(ctx context.Context, maxPosts int) ([]tip.Tip, error)
	CountAuthorPosts(ctx context.Context, authorID int64) (int, error)
	CountAuthorArticles(ctx context.Context, authorID int64) (int, error)
}
