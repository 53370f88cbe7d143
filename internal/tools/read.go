package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	graw "github.com/jamesprial/reddit-mcp-server"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

const (
	// pageSize is the most posts Reddit returns for one listing request.
	pageSize = 100
	// maxCollectedPosts bounds how many pages get_subreddit_posts may walk.
	maxCollectedPosts = 1000
)

// GetSubredditPostsInput represents input for get_subreddit_posts tool
type GetSubredditPostsInput struct {
	Subreddit string `json:"subreddit,omitempty" jsonschema:"Subreddit name without r/ prefix; empty for the front page"`
	Sort      string `json:"sort,omitempty" jsonschema:"One of hot, new, top, rising, controversial (default hot)"`
	Time      string `json:"time,omitempty" jsonschema:"Time window for top and controversial: hour, day, week, month, year, all"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Number of posts to return (default 25, up to 1000; more than 100 fetches several pages)"`
	After     string `json:"after,omitempty" jsonschema:"Fullname to continue after, from a previous response"`
	Before    string `json:"before,omitempty" jsonschema:"Fullname to page backwards from"`
}

// GetPostCommentsInput represents input for get_post_comments tool
type GetPostCommentsInput struct {
	PostID    string `json:"post_id" jsonschema:"Post id, with or without the t3_ prefix"`
	Subreddit string `json:"subreddit,omitempty" jsonschema:"Subreddit the post belongs to"`
	Sort      string `json:"sort,omitempty" jsonschema:"One of confidence, top, new, controversial, old, qa"`
	Depth     int    `json:"depth,omitempty" jsonschema:"Maximum reply depth"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of comments"`
}

// GetPostCommentsOutput is a post with its comment tree and tree statistics.
type GetPostCommentsOutput struct {
	Post         *types.Post      `json:"post,omitempty"`
	Comments     []*types.Comment `json:"comments"`
	CommentCount int              `json:"comment_count"`
	MaxDepth     int              `json:"max_depth"`
	MoreIDs      []string         `json:"more_ids,omitempty"`
}

// GetMoreCommentsInput represents input for get_more_comments tool
type GetMoreCommentsInput struct {
	PostID     string   `json:"post_id" jsonschema:"Post the comments belong to"`
	CommentIDs []string `json:"comment_ids" jsonschema:"Ids from more_ids of a previous get_post_comments call"`
	Sort       string   `json:"sort,omitempty" jsonschema:"Comment sort"`
}

// GetMoreCommentsOutput holds the loaded comments.
type GetMoreCommentsOutput struct {
	Comments     []*types.Comment `json:"comments"`
	CommentCount int              `json:"comment_count"`
}

// GetSubredditInfoInput represents input for get_subreddit_info tool
type GetSubredditInfoInput struct {
	Subreddit string `json:"subreddit" jsonschema:"Subreddit name without r/ prefix"`
}

// GetUserInfoInput represents input for get_user_info tool
type GetUserInfoInput struct {
	Username string `json:"username" jsonschema:"Username without u/ prefix"`
}

// EmptyInput is used by tools without arguments.
type EmptyInput struct{}

// SearchPostsInput represents input for search_posts tool
type SearchPostsInput struct {
	Query     string `json:"query" jsonschema:"Search query"`
	Subreddit string `json:"subreddit,omitempty" jsonschema:"Restrict the search to this subreddit"`
	Sort      string `json:"sort,omitempty" jsonschema:"One of relevance, hot, top, new, comments"`
	Time      string `json:"time,omitempty" jsonschema:"Time window: hour, day, week, month, year, all"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Number of results (max 100)"`
	After     string `json:"after,omitempty" jsonschema:"Fullname to continue after"`
}

func (s *Server) registerReadTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_subreddit_posts",
		Description: "List posts from a subreddit or the front page",
	}, handler(s, "get_subreddit_posts", s.getSubredditPosts))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_post_comments",
		Description: "Get a post and its comment tree",
	}, handler(s, "get_post_comments", s.getPostComments))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_more_comments",
		Description: "Load comments listed in more_ids",
	}, handler(s, "get_more_comments", s.getMoreComments))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_subreddit_info",
		Description: "Get a subreddit's description and subscriber count",
	}, handler(s, "get_subreddit_info", func(ctx context.Context, in GetSubredditInfoInput) (any, error) {
		return s.client.GetSubreddit(ctx, in.Subreddit)
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_user_info",
		Description: "Get a user's public profile and karma",
	}, handler(s, "get_user_info", func(ctx context.Context, in GetUserInfoInput) (any, error) {
		return s.client.GetUser(ctx, in.Username)
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_me",
		Description: "Get the authenticated account",
	}, handler(s, "get_me", func(ctx context.Context, _ EmptyInput) (any, error) {
		return s.client.Me(ctx)
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_posts",
		Description: "Search posts, optionally within one subreddit",
	}, handler(s, "search_posts", func(ctx context.Context, in SearchPostsInput) (any, error) {
		return s.client.Search(ctx, &types.SearchRequest{
			Query:      in.Query,
			Subreddit:  in.Subreddit,
			Sort:       in.Sort,
			Time:       in.Time,
			Pagination: types.Pagination{Limit: in.Limit, After: in.After},
		})
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_rate_limit_status",
		Description: "Report the local rate limiter and the last quota Reddit reported",
	}, handler(s, "get_rate_limit_status", func(context.Context, EmptyInput) (any, error) {
		status := s.client.Status()
		return &status, nil
	}))
}

func (s *Server) getSubredditPosts(ctx context.Context, in GetSubredditPostsInput) (any, error) {
	req := &types.PostsRequest{
		Subreddit:  in.Subreddit,
		Sort:       in.Sort,
		Time:       in.Time,
		Pagination: types.Pagination{Limit: in.Limit, After: in.After, Before: in.Before},
	}
	if in.Limit <= pageSize {
		return s.client.GetPosts(ctx, req)
	}

	if in.Limit > maxCollectedPosts {
		return nil, &pkgerrs.ValidationError{Field: "limit", Message: "cannot exceed 1000"}
	}
	if in.Before != "" {
		return nil, &pkgerrs.ValidationError{Field: "before", Message: "cannot page backwards across multiple pages"}
	}

	req.Pagination.Limit = pageSize
	resp := &types.PostsResponse{Posts: make([]*types.Post, 0, in.Limit)}
	for post, err := range s.client.AllPosts(ctx, req, in.Limit) {
		if err != nil {
			return nil, err
		}
		resp.Posts = append(resp.Posts, post)
	}
	if n := len(resp.Posts); n == in.Limit {
		resp.After = resp.Posts[n-1].Name
	}
	return resp, nil
}

func (s *Server) getPostComments(ctx context.Context, in GetPostCommentsInput) (any, error) {
	resp, err := s.client.GetComments(ctx, &types.CommentsRequest{
		Subreddit: in.Subreddit,
		PostID:    in.PostID,
		Sort:      in.Sort,
		Depth:     in.Depth,
		Limit:     in.Limit,
	})
	if err != nil {
		return nil, err
	}

	tree := graw.NewCommentTree(resp.Comments)
	out := &GetPostCommentsOutput{
		Post:         resp.Post,
		Comments:     resp.Comments,
		CommentCount: tree.Count(),
		MaxDepth:     max(tree.MaxDepth(), 0),
		MoreIDs:      tree.MoreIDs(resp.MoreIDs),
	}
	if out.Comments == nil {
		out.Comments = []*types.Comment{}
	}
	return out, nil
}

func (s *Server) getMoreComments(ctx context.Context, in GetMoreCommentsInput) (any, error) {
	comments, err := s.client.GetMoreComments(ctx, &types.MoreCommentsRequest{
		LinkID:     strings.TrimSpace(in.PostID),
		CommentIDs: in.CommentIDs,
		Sort:       in.Sort,
	})
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*types.Comment{}
	}
	return &GetMoreCommentsOutput{
		Comments:     comments,
		CommentCount: graw.NewCommentTree(comments).Count(),
	}, nil
}
