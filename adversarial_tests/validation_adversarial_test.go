package adversarial_tests

import (
	"context"
	"errors"
	"testing"

	graw "github.com/jamesprial/reddit-mcp-server"
	"github.com/jamesprial/reddit-mcp-server/adversarial_tests/helpers"
	"github.com/jamesprial/reddit-mcp-server/internal/reddittest"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

func requireValidationError(t *testing.T, err error, input string) {
	t.Helper()
	var vErr *pkgerrs.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("input %q: expected ValidationError, got %T: %v", input, err, err)
	}
}

// TestSubredditNameFuzzing tests that hostile subreddit names are rejected before any request
func TestSubredditNameFuzzing(t *testing.T) {
	srv := reddittest.NewServer(t)
	client := createTestClient(t, srv, nil)
	fuzzer := helpers.NewFuzzer(42)
	ctx := context.Background()

	for _, name := range fuzzer.FuzzSubredditName() {
		_, err := client.GetSubreddit(ctx, name)
		requireValidationError(t, err, name)

		_, err = client.GetPosts(ctx, &types.PostsRequest{Subreddit: name})
		if name != "" {
			requireValidationError(t, err, name)
		}

		_, err = client.SubmitPost(ctx, &types.SubmitPostRequest{Subreddit: name, Title: "t", Kind: types.SubmitSelf})
		requireValidationError(t, err, name)
	}

	if srv.APICalls() != 0 || srv.TokenCalls() != 0 {
		t.Errorf("Expected no requests, got %d API and %d token", srv.APICalls(), srv.TokenCalls())
	}
}

// TestThingIDFuzzing tests that malformed post and comment ids are rejected before any request
func TestThingIDFuzzing(t *testing.T) {
	srv := reddittest.NewServer(t)
	client := createTestClient(t, srv, nil)
	fuzzer := helpers.NewFuzzer(42)
	ctx := context.Background()

	for _, id := range fuzzer.FuzzThingID() {
		_, err := client.GetComments(ctx, &types.CommentsRequest{PostID: id})
		requireValidationError(t, err, id)

		_, err = client.GetMoreComments(ctx, &types.MoreCommentsRequest{LinkID: "t3_abc", CommentIDs: []string{id}})
		requireValidationError(t, err, id)

		err = client.Vote(ctx, &types.VoteRequest{ID: id, Direction: 1})
		requireValidationError(t, err, id)

		err = client.Delete(ctx, id)
		requireValidationError(t, err, id)
	}

	if srv.APICalls() != 0 {
		t.Errorf("Expected no API requests, got %d", srv.APICalls())
	}
}

// TestUserAgentFuzzing tests that header breaking user agents are refused at construction
func TestUserAgentFuzzing(t *testing.T) {
	fuzzer := helpers.NewFuzzer(42)

	for _, ua := range fuzzer.FuzzUserAgent() {
		_, err := graw.NewClient(&graw.Config{
			ClientID:     "test_client",
			ClientSecret: "test_secret",
			UserAgent:    ua,
			RefreshToken: "r",
		})
		var cfgErr *pkgerrs.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("user agent %q: expected ConfigError, got %v", ua, err)
		}
	}
}

// TestEmptyAndBoundaryValues tests the edges of the numeric and text limits
func TestEmptyAndBoundaryValues(t *testing.T) {
	srv := reddittest.NewServer(t)
	client := createTestClient(t, srv, nil)
	ctx := context.Background()

	testCases := []struct {
		name string
		call func() error
	}{
		{"limit above page size", func() error {
			_, err := client.GetPosts(ctx, &types.PostsRequest{Pagination: types.Pagination{Limit: 101}})
			return err
		}},
		{"negative limit", func() error {
			_, err := client.GetPosts(ctx, &types.PostsRequest{Pagination: types.Pagination{Limit: -1}})
			return err
		}},
		{"after and before", func() error {
			_, err := client.GetPosts(ctx, &types.PostsRequest{Pagination: types.Pagination{After: "t3_a", Before: "t3_b"}})
			return err
		}},
		{"cursor that is not a fullname", func() error {
			_, err := client.GetPosts(ctx, &types.PostsRequest{Pagination: types.Pagination{After: "../x"}})
			return err
		}},
		{"blank search", func() error {
			_, err := client.Search(ctx, &types.SearchRequest{Query: "   "})
			return err
		}},
		{"vote direction 2", func() error {
			return client.Vote(ctx, &types.VoteRequest{ID: "t3_abc", Direction: 2})
		}},
		{"blank comment", func() error {
			_, err := client.SubmitComment(ctx, &types.CommentRequest{ParentID: "t3_abc", Text: " \n\t"})
			return err
		}},
		{"link post without scheme", func() error {
			_, err := client.SubmitPost(ctx, &types.SubmitPostRequest{Subreddit: "golang", Title: "t", Kind: types.SubmitLink, URL: "javascript:alert(1)"})
			return err
		}},
		{"too many more ids", func() error {
			ids := make([]string, 101)
			for i := range ids {
				ids[i] = "abc"
			}
			_, err := client.GetMoreComments(ctx, &types.MoreCommentsRequest{LinkID: "abc", CommentIDs: ids})
			return err
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			requireValidationError(t, tc.call(), tc.name)
		})
	}

	if srv.APICalls() != 0 {
		t.Errorf("Expected no API requests, got %d", srv.APICalls())
	}
}
