package internal

import (
	"encoding/json"
	"fmt"

	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// MaxCommentDepth is the deepest reply level the parser nests. Replies below it
// are not parsed; their ids are reported in the parent's MoreIDs instead.
const MaxCommentDepth = 50

// Parser turns Reddit's Thing envelopes into typed values.
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

func parseError(format string, args ...any) *pkgerrs.Error {
	return &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: fmt.Sprintf(format, args...)}
}

// decodeThing checks the envelope kind and unmarshals its data into T.
func decodeThing[T any](thing *types.Thing, kind string) (*T, error) {
	if thing == nil {
		return nil, parseError("expected %s, got nothing", kind)
	}
	if thing.Kind != kind {
		return nil, parseError("expected %s, got %s", kind, thing.Kind)
	}

	var v T
	if err := json.Unmarshal(thing.Data, &v); err != nil {
		e := parseError("failed to parse %s data", kind)
		e.Err = err
		return nil, e
	}
	return &v, nil
}

// ParseListing extracts a Listing from a Thing of kind "Listing".
func (p *Parser) ParseListing(thing *types.Thing) (*types.Listing, error) {
	return decodeThing[types.Listing](thing, types.KindListing)
}

// ParseLink extracts a Post from a Thing of kind "t3".
func (p *Parser) ParseLink(thing *types.Thing) (*types.Post, error) {
	return decodeThing[types.Post](thing, types.KindLink)
}

// ParseSubreddit extracts a Subreddit from a Thing of kind "t5".
func (p *Parser) ParseSubreddit(thing *types.Thing) (*types.Subreddit, error) {
	return decodeThing[types.Subreddit](thing, types.KindSubreddit)
}

// ParseAccount extracts an Account from a Thing of kind "t2".
func (p *Parser) ParseAccount(thing *types.Thing) (*types.Account, error) {
	return decodeThing[types.Account](thing, types.KindAccount)
}

// ParseMore extracts a More placeholder.
func (p *Parser) ParseMore(thing *types.Thing) (*types.More, error) {
	return decodeThing[types.More](thing, types.KindMore)
}

// ParseComment extracts a Comment from a Thing of kind "t1", including its reply tree.
func (p *Parser) ParseComment(thing *types.Thing) (*types.Comment, error) {
	return p.parseComment(thing, 0)
}

func (p *Parser) parseComment(thing *types.Thing, depth int) (*types.Comment, error) {
	comment, err := decodeThing[types.Comment](thing, types.KindComment)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Replies json.RawMessage `json:"replies"`
	}
	if err := json.Unmarshal(thing.Data, &raw); err != nil || len(raw.Replies) == 0 || raw.Replies[0] != '{' {
		// Reddit sends "" when a comment has no replies.
		return comment, nil
	}

	var replies types.Thing
	if err := json.Unmarshal(raw.Replies, &replies); err != nil {
		return comment, nil
	}
	if depth >= MaxCommentDepth {
		comment.MoreIDs = truncatedIDs(&replies)
		return comment, nil
	}
	comment.Replies, comment.MoreIDs, err = p.extractComments(&replies, depth+1)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// truncatedIDs lists the ids of a reply listing without parsing the replies.
func truncatedIDs(listing *types.Thing) []string {
	var data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID       string   `json:"id"`
				Children []string `json:"children"`
			} `json:"data"`
		} `json:"children"`
	}
	if err := json.Unmarshal(listing.Data, &data); err != nil {
		return nil
	}
	var ids []string
	for _, child := range data.Children {
		switch child.Kind {
		case types.KindComment:
			ids = append(ids, child.Data.ID)
		case types.KindMore:
			ids = append(ids, child.Data.Children...)
		}
	}
	return ids
}

// ExtractPosts returns the posts of a listing, skipping children of other kinds.
func (p *Parser) ExtractPosts(listing *types.Thing) (*types.PostsResponse, error) {
	data, err := p.ParseListing(listing)
	if err != nil {
		return nil, err
	}

	resp := &types.PostsResponse{
		Posts:  make([]*types.Post, 0, len(data.Children)),
		After:  data.After,
		Before: data.Before,
	}
	for _, child := range data.Children {
		if child == nil || child.Kind != types.KindLink {
			continue
		}
		post, err := p.ParseLink(child)
		if err != nil {
			return nil, err
		}
		resp.Posts = append(resp.Posts, post)
	}
	return resp, nil
}

// ExtractComments returns the top level comments of a listing, with replies nested
// under their parents, and the ids collected from "more" placeholders at this level.
func (p *Parser) ExtractComments(listing *types.Thing) ([]*types.Comment, []string, error) {
	return p.extractComments(listing, 0)
}

func (p *Parser) extractComments(listing *types.Thing, depth int) ([]*types.Comment, []string, error) {
	data, err := p.ParseListing(listing)
	if err != nil {
		return nil, nil, err
	}

	comments := make([]*types.Comment, 0, len(data.Children))
	var moreIDs []string
	for _, child := range data.Children {
		if child == nil {
			continue
		}
		switch child.Kind {
		case types.KindComment:
			comment, err := p.parseComment(child, depth)
			if err != nil {
				return nil, nil, err
			}
			comments = append(comments, comment)
		case types.KindMore:
			more, err := p.ParseMore(child)
			if err != nil {
				return nil, nil, err
			}
			moreIDs = append(moreIDs, more.Children...)
		}
	}
	return comments, moreIDs, nil
}

// ExtractPostAndComments parses the two element [post listing, comment listing]
// array returned by the comments endpoint.
func (p *Parser) ExtractPostAndComments(things []*types.Thing) (*types.CommentsResponse, error) {
	if len(things) != 2 {
		return nil, parseError("expected post and comment listings, got %d elements", len(things))
	}

	posts, err := p.ExtractPosts(things[0])
	if err != nil {
		return nil, err
	}
	comments, moreIDs, err := p.ExtractComments(things[1])
	if err != nil {
		return nil, err
	}

	resp := &types.CommentsResponse{Comments: comments, MoreIDs: moreIDs}
	if len(posts.Posts) > 0 {
		resp.Post = posts.Posts[0]
	}
	return resp, nil
}

// ExtractMoreChildren flattens the things returned by /api/morechildren. Reddit
// returns every loaded comment as a flat list; this rebuilds the tree by parent id.
func (p *Parser) ExtractMoreChildren(things []*types.Thing) ([]*types.Comment, []string, error) {
	byName := make(map[string]*types.Comment, len(things))
	var ordered []*types.Comment
	var moreIDs []string

	for _, thing := range things {
		if thing == nil {
			continue
		}
		switch thing.Kind {
		case types.KindComment:
			c, err := p.ParseComment(thing)
			if err != nil {
				return nil, nil, err
			}
			byName[c.Name] = c
			ordered = append(ordered, c)
		case types.KindMore:
			m, err := p.ParseMore(thing)
			if err != nil {
				return nil, nil, err
			}
			if parent, ok := byName[m.ParentID]; ok {
				parent.MoreIDs = append(parent.MoreIDs, m.Children...)
				continue
			}
			moreIDs = append(moreIDs, m.Children...)
		}
	}

	roots := make([]*types.Comment, 0, len(ordered))
	for _, c := range ordered {
		if parent, ok := byName[c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
			continue
		}
		roots = append(roots, c)
	}
	return roots, moreIDs, nil
}
