package types

import "encoding/json"

// Listing sort orders.
const (
	SortHot           = "hot"
	SortNew           = "new"
	SortTop           = "top"
	SortRising        = "rising"
	SortControversial = "controversial"

	// Search only.
	SortRelevance = "relevance"
	SortComments  = "comments"
)

// Time windows accepted by the top and controversial sorts and by search.
const (
	TimeHour  = "hour"
	TimeDay   = "day"
	TimeWeek  = "week"
	TimeMonth = "month"
	TimeYear  = "year"
	TimeAll   = "all"
)

// Submission kinds.
const (
	SubmitSelf = "self"
	SubmitLink = "link"
)

// Pagination is shared by listing requests. Reddit paginates by fullname.
type Pagination struct {
	// Limit is the page size, 1-100. Zero uses Reddit's default of 25.
	Limit int
	// After returns items after this fullname. Cannot be combined with Before.
	After string
	// Before returns items before this fullname.
	Before string
}

// PostsRequest lists a subreddit's posts. An empty Subreddit targets the front page.
type PostsRequest struct {
	Subreddit string
	// Sort defaults to hot.
	Sort string
	// Time applies to the top and controversial sorts.
	Time string
	Pagination
}

// CommentsRequest fetches a post together with its comment tree.
type CommentsRequest struct {
	// Subreddit is optional; the post id alone identifies the thread.
	Subreddit string
	PostID    string
	// Sort is one of confidence, top, new, controversial, old, qa.
	Sort string
	// Depth caps reply nesting. Zero means no limit.
	Depth int
	Limit int
}

// MoreCommentsRequest expands truncated comments of a post.
type MoreCommentsRequest struct {
	// LinkID is the post fullname or bare id.
	LinkID     string
	CommentIDs []string
	Sort       string
	Depth      int
	Limit      int
}

// SearchRequest searches posts, site wide or restricted to Subreddit.
type SearchRequest struct {
	Query     string
	Subreddit string
	// Sort is one of relevance, hot, top, new, comments.
	Sort string
	Time string
	Pagination
}

// SubmitPostRequest creates a post. Kind "self" uses Text, kind "link" uses URL.
type SubmitPostRequest struct {
	Subreddit   string
	Title       string
	Kind        string
	Text        string
	URL         string
	NSFW        bool
	Spoiler     bool
	SendReplies bool
}

// CommentRequest replies to a post or a comment identified by its fullname.
type CommentRequest struct {
	ParentID string
	Text     string
}

// VoteRequest casts a vote. Direction is 1, 0 (clear) or -1.
type VoteRequest struct {
	ID        string
	Direction int
}

// EditRequest replaces the body of a self post or comment.
type EditRequest struct {
	ID   string
	Text string
}

// PostsResponse is a page of posts.
type PostsResponse struct {
	Posts  []*Post `json:"posts"`
	After  string  `json:"after,omitempty"`
	Before string  `json:"before,omitempty"`
}

// CommentsResponse is a post with its top level comments and the ids of
// truncated top level comments.
type CommentsResponse struct {
	Post     *Post      `json:"post,omitempty"`
	Comments []*Comment `json:"comments"`
	MoreIDs  []string   `json:"more_ids,omitempty"`
}

// SubmitResult identifies a newly created post.
type SubmitResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// WriteResponse is the envelope returned by write endpoints called with api_type=json.
type WriteResponse struct {
	JSON struct {
		// Errors holds [code, message, field] triples.
		Errors [][]any         `json:"errors"`
		Data   json.RawMessage `json:"data"`
	} `json:"json"`
}
