package smartsheet

import (
	"context"
	"iter"
)

// defaultPageSize is the page size used by the iterators.
const defaultPageSize = 100

// Sheets returns an iterator over all accessible sheets with automatic pagination.
// Stops iteration early if an error occurs or context is cancelled.
func (c *Client) Sheets(ctx context.Context) iter.Seq2[Sheet, error] {
	return paginate(ctx, c.ListSheets)
}

// Users returns an iterator over all users in the organization.
func (c *Client) Users(ctx context.Context) iter.Seq2[User, error] {
	return paginate(ctx, c.ListUsers)
}

// paginate walks every page returned by list until the last page is reached.
func paginate[T any](ctx context.Context, list func(context.Context, *PageOptions) (*IndexResult[T], error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		page := 1
		for {
			select {
			case <-ctx.Done():
				yield(zero, ctx.Err())
				return
			default:
			}

			resp, err := list(ctx, &PageOptions{Page: page, PageSize: defaultPageSize})
			if err != nil {
				yield(zero, err)
				return
			}

			for _, item := range resp.Data {
				if !yield(item, nil) {
					return // caller stopped iteration
				}
			}

			if len(resp.Data) == 0 || page >= resp.TotalPages {
				return // no more pages
			}
			page++
		}
	}
}
