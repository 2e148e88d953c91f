package adapter

import (
	"context"
	"fmt"
)

// Page is one page of a cursored history query. NextCursor feeds the next
// request; HasMore false is the venue's explicit no-more-pages signal.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// PageFunc fetches one page for the given cursor.
type PageFunc[T any] func(ctx context.Context, cursor string, limit int) (Page[T], error)

// Collect drains a cursored query into one slice. It stops when a page comes
// back short of limit or the venue signals no more pages. A failure mid-loop
// propagates; no partial result is returned silently.
func Collect[T any](ctx context.Context, limit int, fetch PageFunc[T]) ([]T, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("page limit must be positive, got %d", limit)
	}

	var out []T
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, cursor, limit)
		if err != nil {
			return nil, fmt.Errorf("page after %d items: %w", len(out), err)
		}
		out = append(out, page.Items...)

		if len(page.Items) < limit || !page.HasMore {
			return out, nil
		}
		cursor = page.NextCursor
	}
}
