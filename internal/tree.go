package internal

import (
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// CommentTree provides utility methods for working with nested comments.
type CommentTree struct {
	Comments []*types.Comment
}

// NewCommentTree creates a new CommentTree from top level comments.
func NewCommentTree(comments []*types.Comment) *CommentTree {
	return &CommentTree{Comments: comments}
}

// Walk calls fn for every comment in depth first order with its depth below the
// top level. Returning false stops the walk.
func (ct *CommentTree) Walk(fn func(comment *types.Comment, depth int) bool) {
	walk(ct.Comments, 0, fn)
}

func walk(comments []*types.Comment, depth int, fn func(*types.Comment, int) bool) bool {
	for _, comment := range comments {
		if comment == nil {
			continue
		}
		if !fn(comment, depth) {
			return false
		}
		if !walk(comment.Replies, depth+1, fn) {
			return false
		}
	}
	return true
}

// Flatten returns all comments in the tree as a flat slice.
func (ct *CommentTree) Flatten() []*types.Comment {
	var result []*types.Comment
	ct.Walk(func(c *types.Comment, _ int) bool {
		result = append(result, c)
		return true
	})
	return result
}

// Count returns the total number of comments in the tree.
func (ct *CommentTree) Count() int {
	n := 0
	ct.Walk(func(*types.Comment, int) bool {
		n++
		return true
	})
	return n
}

// MaxDepth returns the deepest reply level, 0 when only top level comments exist
// and -1 for an empty tree.
func (ct *CommentTree) MaxDepth() int {
	maxDepth := -1
	ct.Walk(func(_ *types.Comment, depth int) bool {
		maxDepth = max(maxDepth, depth)
		return true
	})
	return maxDepth
}

// GetByID returns the comment with the given base36 id or fullname.
func (ct *CommentTree) GetByID(id string) *types.Comment {
	var found *types.Comment
	ct.Walk(func(c *types.Comment, _ int) bool {
		if c.ID == id || c.Name == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// MoreIDs collects the ids of every truncated comment in the tree, top level
// first.
func (ct *CommentTree) MoreIDs(topLevel []string) []string {
	ids := append([]string(nil), topLevel...)
	ct.Walk(func(c *types.Comment, _ int) bool {
		ids = append(ids, c.MoreIDs...)
		return true
	})
	return ids
}
