package wordpress

import (
	"context"
	"time"

	"github.com/guiadoapostador/tipster-api/internal/domain/tip"
	"github.com/guiadoapostador/tipster-api/internal/usecase"
)

// FetchAuthorTips pages through an author's tips newest first until `need`
// items are collected, a tip older than `cutoff` is seen, or the page ceiling
// is hit. A failing first page is an error; later failures degrade to a
// partial feed.
func (c *Client) FetchAuthorTips(ctx context.Context, authorID int64, need int, cutoff time.Time) (usecase.TipFeed, error) {
	if need <= 0 {
		need = pageSize
	}

	out := usecase.TipFeed{Tips: make([]tip.Tip, 0, minInt(need, pageSize))}
	query := PostQuery{AuthorID: authorID, Embed: true}

	for page := 1; page <= c.maxPages; page++ {
		result, err := c.ListPostsPage(ctx, query, page)
		if err != nil {
			if ctx.Err() != nil {
				return usecase.TipFeed{}, ctx.Err()
			}
			if page == 1 {
				return usecase.TipFeed{}, err
			}
			c.logger.WarnContext(ctx, "tip feed truncated, serving collected pages",
				"author_id", authorID,
				"page", page,
				"collected", len(out.Tips),
				"error", err,
			)
			out.Partial = true
			return out, nil
		}

		if result.Total > out.Total {
			out.Total = result.Total
		}

		for _, item := range result.Tips {
			if !cutoff.IsZero() {
				if published, ok := item.PublishedAt(); ok && published.Before(cutoff) {
					return out, nil
				}
			}
			out.Tips = append(out.Tips, item)
			if len(out.Tips) >= need {
				return out, nil
			}
		}

		if len(result.Tips) < pageSize {
			return out, nil
		}
		if result.TotalPages > 0 && page >= result.TotalPages {
			return out, nil
		}
	}

	return out, nil
}

// MineAuthors walks recent post pages and collects the embedded author of
// each one. Used when the users endpoint is blocked upstream.
func (c *Client) MineAuthors(ctx context.Context, maxPosts int) ([]tip.Tip, error) {
	if maxPosts <= 0 {
		maxPosts = pageSize
	}

	out := make([]tip.Tip, 0, minInt(maxPosts, pageSize))
	for page := 1; page <= c.maxPages; page++ {
		result, err := c.ListPostsPage(ctx, PostQuery{Embed: true}, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if page == 1 {
				return nil, err
			}
			c.logger.WarnContext(ctx, "author mining stopped early", "page", page, "error", err)
			return out, nil
		}

		out = append(out, result.Tips...)
		if len(out) >= maxPosts {
			return out[:maxPosts], nil
		}
		if len(result.Tips) < pageSize {
			return out, nil
		}
	}
	return out, nil
}

func minInt(left, right int) int {
	if left < right {
		return left
	}
	return right
}
