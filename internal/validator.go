package internal

import (
	"fmt"
	"regexp"
	"strings"

	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

const (
	// Pagination constraints
	maxPaginationLimit = 100

	// morechildren accepts at most this many ids per call
	maxCommentIDs = 100

	maxUserAgentLength = 256
	maxTitleLength     = 300
	maxTextLength      = 40000
)

var (
	// subreddit names are 3-21 letters, digits or underscores; "all" style
	// multireddits joined with "+" are accepted for reads.
	subredditRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{1,20}(\+[A-Za-z0-9][A-Za-z0-9_]{1,20})*$`)
	usernameRegex  = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)
	base36Regex    = regexp.MustCompile(`^[0-9a-z]+$`)
	fullnameRegex  = regexp.MustCompile(`^t[1-6]_[0-9a-z]+$`)
)

var (
	postSorts    = []string{types.SortHot, types.SortNew, types.SortTop, types.SortRising, types.SortControversial}
	searchSorts  = []string{types.SortRelevance, types.SortHot, types.SortTop, types.SortNew, types.SortComments}
	commentSorts = []string{"confidence", types.SortTop, types.SortNew, types.SortControversial, "old", "qa"}
	timeWindows  = []string{types.TimeHour, types.TimeDay, types.TimeWeek, types.TimeMonth, types.TimeYear, types.TimeAll}
)

// Validator checks request arguments before they are sent to Reddit.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

func invalid(field, format string, args ...any) error {
	return &pkgerrs.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func oneOf(field, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(field, "%q is not one of %s", value, strings.Join(allowed, ", "))
}

// ValidateSubredditName checks a subreddit name. An "r/" prefix must be stripped first.
func (v *Validator) ValidateSubredditName(name string) error {
	if name == "" {
		return invalid("subreddit", "cannot be empty")
	}
	if !subredditRegex.MatchString(name) {
		return invalid("subreddit", "%q is not a valid subreddit name", name)
	}
	return nil
}

// ValidateUsername checks a Reddit username.
func (v *Validator) ValidateUsername(name string) error {
	if !usernameRegex.MatchString(name) {
		return invalid("username", "%q is not a valid username", name)
	}
	return nil
}

// ValidatePagination checks the limit range and that After and Before are exclusive.
func (v *Validator) ValidatePagination(p types.Pagination) error {
	if p.After != "" && p.Before != "" {
		return invalid("pagination", "cannot set both after and before")
	}
	if p.Limit < 0 || p.Limit > maxPaginationLimit {
		return invalid("limit", "must be between 0 and %d", maxPaginationLimit)
	}
	for field, cursor := range map[string]string{"after": p.After, "before": p.Before} {
		if cursor != "" && !fullnameRegex.MatchString(cursor) {
			return invalid(field, "%q is not a fullname", cursor)
		}
	}
	return nil
}

// ValidatePostsRequest checks a listing request.
func (v *Validator) ValidatePostsRequest(req *types.PostsRequest) error {
	if req.Subreddit != "" {
		if err := v.ValidateSubredditName(req.Subreddit); err != nil {
			return err
		}
	}
	if err := oneOf("sort", req.Sort, postSorts); err != nil {
		return err
	}
	if err := oneOf("time", req.Time, timeWindows); err != nil {
		return err
	}
	return v.ValidatePagination(req.Pagination)
}

// ValidateSearchRequest checks a search request.
func (v *Validator) ValidateSearchRequest(req *types.SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return invalid("query", "cannot be empty")
	}
	if req.Subreddit != "" {
		if err := v.ValidateSubredditName(req.Subreddit); err != nil {
			return err
		}
	}
	if err := oneOf("sort", req.Sort, searchSorts); err != nil {
		return err
	}
	if err := oneOf("time", req.Time, timeWindows); err != nil {
		return err
	}
	return v.ValidatePagination(req.Pagination)
}

// ValidateCommentsRequest checks a comment tree request.
func (v *Validator) ValidateCommentsRequest(req *types.CommentsRequest) error {
	if req.Subreddit != "" {
		if err := v.ValidateSubredditName(req.Subreddit); err != nil {
			return err
		}
	}
	if !base36Regex.MatchString(req.PostID) {
		return invalid("post_id", "%q is not a post id", req.PostID)
	}
	if req.Depth < 0 || req.Limit < 0 {
		return invalid("depth", "depth and limit cannot be negative")
	}
	return oneOf("sort", req.Sort, commentSorts)
}

// ValidateCommentIDs checks the ids passed to morechildren.
func (v *Validator) ValidateCommentIDs(ids []string) error {
	if len(ids) == 0 {
		return invalid("comment_ids", "at least one id is required")
	}
	if len(ids) > maxCommentIDs {
		return invalid("comment_ids", "cannot request more than %d ids at once (got %d)", maxCommentIDs, len(ids))
	}
	for i, id := range ids {
		if !base36Regex.MatchString(id) {
			return invalid(fmt.Sprintf("comment_ids[%d]", i), "%q is not a comment id", id)
		}
	}
	return nil
}

// ValidateFullname checks that id is a fullname whose kind is one of kinds.
func (v *Validator) ValidateFullname(field, id string, kinds ...string) error {
	if !fullnameRegex.MatchString(id) {
		return invalid(field, "%q is not a fullname", id)
	}
	if len(kinds) == 0 {
		return nil
	}
	prefix, _, _ := strings.Cut(id, "_")
	for _, k := range kinds {
		if prefix == k {
			return nil
		}
	}
	return invalid(field, "%q must be a %s fullname", id, strings.Join(kinds, " or "))
}

// ValidateSubmitPost checks a submission.
func (v *Validator) ValidateSubmitPost(req *types.SubmitPostRequest) error {
	if err := v.ValidateSubredditName(req.Subreddit); err != nil {
		return err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return invalid("title", "cannot be empty")
	}
	if len(title) > maxTitleLength {
		return invalid("title", "cannot exceed %d characters", maxTitleLength)
	}

	switch req.Kind {
	case types.SubmitSelf:
		if req.URL != "" {
			return invalid("url", "self posts cannot have a url")
		}
		if len(req.Text) > maxTextLength {
			return invalid("text", "cannot exceed %d characters", maxTextLength)
		}
	case types.SubmitLink:
		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			return invalid("url", "link posts require an http or https url")
		}
		if req.Text != "" {
			return invalid("text", "link posts cannot have text")
		}
	default:
		return invalid("kind", "%q is not one of self, link", req.Kind)
	}
	return nil
}

// ValidateText checks a comment or edit body.
func (v *Validator) ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("text", "cannot be empty")
	}
	if len(text) > maxTextLength {
		return invalid("text", "cannot exceed %d characters", maxTextLength)
	}
	return nil
}

// ValidateVoteDirection accepts 1, 0 and -1.
func (v *Validator) ValidateVoteDirection(dir int) error {
	if dir < -1 || dir > 1 {
		return invalid("direction", "must be -1, 0 or 1")
	}
	return nil
}

// ValidateUserAgent rejects empty, oversized or header-injecting user agents.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return fmt.Errorf("user agent cannot be empty")
	}
	if strings.ContainsAny(ua, "\r\n") {
		return fmt.Errorf("user agent cannot contain newline characters")
	}
	if len(ua) > maxUserAgentLength {
		return fmt.Errorf("user agent too long (max %d characters)", maxUserAgentLength)
	}
	return nil
}
