package graw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jamesprial/reddit-mcp-server/internal"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// trimSubreddit accepts "golang", "r/golang" and "/r/golang".
func trimSubreddit(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	return strings.TrimPrefix(name, "r/")
}

func paginationQuery(q url.Values, p types.Pagination) {
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.Before != "" {
		q.Set("before", p.Before)
	}
}

// getThing issues a GET and decodes a single Thing envelope.
func (c *Client) getThing(ctx context.Context, op, path string, query url.Values) (*types.Thing, error) {
	var thing types.Thing
	err := c.call(ctx, op, true, func(ctx context.Context, api *internal.Client) (*http.Response, error) {
		req, err := api.NewRequest(ctx, http.MethodGet, path, query)
		if err != nil {
			return nil, err
		}
		return api.Do(req, &thing)
	})
	if err != nil {
		return nil, err
	}
	return &thing, nil
}

// GetPosts retrieves a page of posts from a subreddit, or from the front page when
// Subreddit is empty. Sort defaults to hot.
func (c *Client) GetPosts(ctx context.Context, request *types.PostsRequest) (*types.PostsResponse, error) {
	req := types.PostsRequest{}
	if request != nil {
		req = *request
	}
	req.Subreddit = trimSubreddit(req.Subreddit)
	if req.Sort == "" {
		req.Sort = types.SortHot
	}
	if err := c.validator.ValidatePostsRequest(&req); err != nil {
		return nil, err
	}

	path := req.Sort
	if req.Subreddit != "" {
		path = "r/" + req.Subreddit + "/" + req.Sort
	}
	q := url.Values{}
	paginationQuery(q, req.Pagination)
	if req.Time != "" && (req.Sort == types.SortTop || req.Sort == types.SortControversial) {
		q.Set("t", req.Time)
	}

	thing, err := c.getThing(ctx, "get_posts", path, q)
	if err != nil {
		return nil, err
	}
	return c.parser.ExtractPosts(thing)
}

// Search finds posts matching a query, optionally restricted to one subreddit.
func (c *Client) Search(ctx context.Context, request *types.SearchRequest) (*types.PostsResponse, error) {
	if request == nil {
		return nil, &pkgerrs.ValidationError{Message: "search request cannot be nil"}
	}
	req := *request
	req.Subreddit = trimSubreddit(req.Subreddit)
	if err := c.validator.ValidateSearchRequest(&req); err != nil {
		return nil, err
	}

	path := "search"
	q := url.Values{"q": {req.Query}, "type": {"link"}}
	if req.Subreddit != "" {
		path = "r/" + req.Subreddit + "/search"
		q.Set("restrict_sr", "true")
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Time != "" {
		q.Set("t", req.Time)
	}
	paginationQuery(q, req.Pagination)

	thing, err := c.getThing(ctx, "search", path, q)
	if err != nil {
		return nil, err
	}
	return c.parser.ExtractPosts(thing)
}

// GetComments retrieves a post and its comment tree. Truncated top level comments
// are reported in MoreIDs and can be loaded with GetMoreComments.
func (c *Client) GetComments(ctx context.Context, request *types.CommentsRequest) (*types.CommentsResponse, error) {
	if request == nil {
		return nil, &pkgerrs.ValidationError{Message: "comments request cannot be nil"}
	}
	req := *request
	req.Subreddit = trimSubreddit(req.Subreddit)
	req.PostID = strings.TrimPrefix(req.PostID, types.KindLink+"_")
	if err := c.validator.ValidateCommentsRequest(&req); err != nil {
		return nil, err
	}

	path := "comments/" + req.PostID
	if req.Subreddit != "" {
		path = "r/" + req.Subreddit + "/comments/" + req.PostID
	}
	q := url.Values{}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Depth > 0 {
		q.Set("depth", strconv.Itoa(req.Depth))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	var things []*types.Thing
	err := c.call(ctx, "get_comments", true, func(ctx context.Context, api *internal.Client) (*http.Response, error) {
		httpReq, err := api.NewRequest(ctx, http.MethodGet, path, q)
		if err != nil {
			return nil, err
		}
		return api.Do(httpReq, &things)
	})
	if err != nil {
		return nil, err
	}
	return c.parser.ExtractPostAndComments(things)
}

// GetMoreComments loads comments that were truncated from a comment tree. The
// returned comments are nested by parent where the parent is among them.
func (c *Client) GetMoreComments(ctx context.Context, request *types.MoreCommentsRequest) ([]*types.Comment, error) {
	if request == nil {
		return nil, &pkgerrs.ValidationError{Message: "more comments request cannot be nil"}
	}
	linkID := request.LinkID
	if !strings.HasPrefix(linkID, types.KindLink+"_") {
		linkID = types.KindLink + "_" + linkID
	}
	if err := c.validator.ValidateFullname("link_id", linkID, types.KindLink); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateCommentIDs(request.CommentIDs); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateCommentsRequest(&types.CommentsRequest{
		PostID: strings.TrimPrefix(linkID, types.KindLink+"_"),
		Sort:   request.Sort,
		Depth:  request.Depth,
		Limit:  request.Limit,
	}); err != nil {
		return nil, err
	}

	form := url.Values{
		"api_type": {"json"},
		"link_id":  {linkID},
		"children": {strings.Join(request.CommentIDs, ",")},
	}
	if request.Sort != "" {
		form.Set("sort", request.Sort)
	}
	if request.Depth > 0 {
		form.Set("depth", strconv.Itoa(request.Depth))
	}
	if request.Limit > 0 {
		form.Set("limit_children", strconv.Itoa(request.Limit))
	}

	var data struct {
		Things []*types.Thing `json:"things"`
	}
	// morechildren is a read despite being a POST.
	if err := c.write(ctx, "get_more_comments", true, "api/morechildren", form, &data); err != nil {
		return nil, err
	}
	comments, _, err := c.parser.ExtractMoreChildren(data.Things)
	return comments, err
}

// GetSubreddit retrieves a subreddit's about page.
func (c *Client) GetSubreddit(ctx context.Context, name string) (*types.Subreddit, error) {
	name = trimSubreddit(name)
	if err := c.validator.ValidateSubredditName(name); err != nil {
		return nil, err
	}
	thing, err := c.getThing(ctx, "get_subreddit", "r/"+name+"/about", nil)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseSubreddit(thing)
}

// GetUser retrieves a user's public profile.
func (c *Client) GetUser(ctx context.Context, username string) (*types.Account, error) {
	username = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(username), "/"), "u/")
	if err := c.validator.ValidateUsername(username); err != nil {
		return nil, err
	}
	thing, err := c.getThing(ctx, "get_user", "user/"+username+"/about", nil)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseAccount(thing)
}

// Me returns the authenticated account. Unlike the other endpoints /api/v1/me
// returns the account fields without a Thing envelope.
func (c *Client) Me(ctx context.Context) (*types.Account, error) {
	var account types.Account
	err := c.call(ctx, "me", true, func(ctx context.Context, api *internal.Client) (*http.Response, error) {
		req, err := api.NewRequest(ctx, http.MethodGet, "api/v1/me", nil)
		if err != nil {
			return nil, err
		}
		resp, body, err := api.DoRaw(req)
		if err != nil {
			return resp, err
		}
		return resp, decodeAccount(body, &account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// decodeAccount accepts both the bare account object and a t2 envelope.
func decodeAccount(body []byte, account *types.Account) error {
	var probe struct {
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: "failed to decode account", Err: err}
	}
	payload := body
	if probe.Kind == types.KindAccount && len(probe.Data) > 0 {
		payload = probe.Data
	}
	if err := json.Unmarshal(payload, account); err != nil {
		return &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: "failed to decode account", Err: err}
	}
	return nil
}
