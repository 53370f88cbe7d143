package graw

import (
	"context"
	"errors"
	"iter"

	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// maxPageSize is the largest page Reddit serves for a listing.
const maxPageSize = 100

// ErrIteratorDone is returned by Next once the listing is exhausted.
var ErrIteratorDone = errors.New("no more posts available")

type pageFunc func(ctx context.Context, page types.Pagination) (*types.PostsResponse, error)

// PostIterator pages through a listing of posts, following the After cursor.
type PostIterator struct {
	fetch     pageFunc
	limit     int
	buffer    []*types.Post
	bufferIdx int
	after     string
	hasMore   bool
	err       error
	ctx       context.Context
}

// NewPostIterator creates an iterator over a subreddit or front page listing.
// The request's Pagination is used as the starting point.
func (c *Client) NewPostIterator(ctx context.Context, request *types.PostsRequest) *PostIterator {
	req := types.PostsRequest{}
	if request != nil {
		req = *request
	}
	return newPostIterator(ctx, req.Pagination, func(ctx context.Context, page types.Pagination) (*types.PostsResponse, error) {
		r := req
		r.Pagination = page
		return c.GetPosts(ctx, &r)
	})
}

// NewSearchIterator creates an iterator over search results.
func (c *Client) NewSearchIterator(ctx context.Context, request *types.SearchRequest) *PostIterator {
	req := types.SearchRequest{}
	if request != nil {
		req = *request
	}
	return newPostIterator(ctx, req.Pagination, func(ctx context.Context, page types.Pagination) (*types.PostsResponse, error) {
		r := req
		r.Pagination = page
		return c.Search(ctx, &r)
	})
}

func newPostIterator(ctx context.Context, start types.Pagination, fetch pageFunc) *PostIterator {
	limit := start.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return &PostIterator{
		fetch:   fetch,
		limit:   limit,
		after:   start.After,
		hasMore: true,
		ctx:     ctx,
	}
}

// HasNext returns true if there may be more posts to iterate through.
func (it *PostIterator) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.hasMore
}

// Next returns the next post in the iteration.
func (it *PostIterator) Next() (*types.Post, error) {
	for {
		if it.err != nil {
			return nil, it.err
		}

		if it.bufferIdx >= len(it.buffer) {
			if !it.hasMore {
				return nil, ErrIteratorDone
			}
			if err := it.fill(); err != nil {
				it.err = err
				return nil, err
			}
			continue
		}

		post := it.buffer[it.bufferIdx]
		it.bufferIdx++
		if post != nil {
			return post, nil
		}
	}
}

func (it *PostIterator) fill() error {
	resp, err := it.fetch(it.ctx, types.Pagination{Limit: it.limit, After: it.after})
	if err != nil {
		return err
	}
	if resp == nil {
		return errors.New("received nil response")
	}

	it.buffer = resp.Posts
	it.bufferIdx = 0
	// A repeated cursor would loop forever.
	if resp.After == "" || resp.After == it.after || len(resp.Posts) == 0 {
		it.hasMore = false
	}
	it.after = resp.After
	return nil
}

// After returns the cursor for the page following the posts buffered so far.
func (it *PostIterator) After() string {
	return it.after
}

// Error returns any error encountered during iteration.
func (it *PostIterator) Error() error {
	return it.err
}

// Collect fetches posts until the listing ends or maxPosts have been read.
// maxPosts <= 0 means no limit.
func (it *PostIterator) Collect(maxPosts int) ([]*types.Post, error) {
	var posts []*types.Post
	for post, err := range it.All() {
		if err != nil {
			return posts, err
		}
		posts = append(posts, post)
		if maxPosts > 0 && len(posts) >= maxPosts {
			break
		}
	}
	return posts, nil
}

// All adapts the iterator to a range-over-func sequence. Iteration stops after the
// first error is yielded.
func (it *PostIterator) All() iter.Seq2[*types.Post, error] {
	return func(yield func(*types.Post, error) bool) {
		for it.HasNext() {
			post, err := it.Next()
			if errors.Is(err, ErrIteratorDone) {
				return
			}
			if !yield(post, err) || err != nil {
				return
			}
		}
	}
}

// AllPosts yields up to maxPosts posts from a listing, fetching pages as needed.
func (c *Client) AllPosts(ctx context.Context, request *types.PostsRequest, maxPosts int) iter.Seq2[*types.Post, error] {
	it := c.NewPostIterator(ctx, request)
	return func(yield func(*types.Post, error) bool) {
		n := 0
		for post, err := range it.All() {
			if !yield(post, err) {
				return
			}
			n++
			if maxPosts > 0 && n >= maxPosts {
				return
			}
		}
	}
}
