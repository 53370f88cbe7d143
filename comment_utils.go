package graw

import (
	"github.com/jamesprial/reddit-mcp-server/internal"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// CommentTree provides utility methods for working with the nested comments
// returned by GetComments and GetMoreComments.
type CommentTree interface {
	// Walk visits comments depth first. Top level comments have depth 0.
	// Returning false from fn stops the walk.
	Walk(fn func(comment *types.Comment, depth int) bool)
	Flatten() []*types.Comment
	Count() int
	// MaxDepth is -1 for an empty tree.
	MaxDepth() int
	GetByID(id string) *types.Comment
	// MoreIDs returns topLevel followed by every unloaded reply ID in the tree.
	MoreIDs(topLevel []string) []string
}

// NewCommentTree creates a CommentTree over top level comments.
func NewCommentTree(comments []*types.Comment) CommentTree {
	return internal.NewCommentTree(comments)
}
