// Package graw is a Reddit API client built to back agent tools.
//
// # Overview
//
// A Client turns each operation into one pass through a fixed pipeline:
//
//  1. Admission: a token bucket limiter with a FIFO queue holds the call until a
//     token is available. Calls are never rejected for being over the local quota;
//     they wait.
//  2. Authentication: the auth manager hands out a cached access token, refreshing
//     it 60 seconds before it expires. A stored refresh token is tried first and a
//     failed refresh falls back to the password grant. Obtaining the token is
//     retried with exponential backoff.
//  3. Request: the call is sent with a bearer token and the configured user agent.
//  4. Classification: every failure is returned as a *errors.Error from
//     github.com/jamesprial/reddit-mcp-server/pkg/errors, tagged with a Kind.
//
// Read calls are retried as a whole (each attempt takes a new limiter token); write
// calls that are not idempotent are sent once.
//
// # Quick Start
//
//	cfg, err := graw.LoadConfig("") // REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USER_AGENT, ...
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := graw.NewClient(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	posts, err := client.GetPosts(ctx, &types.PostsRequest{
//		Subreddit:  "golang",
//		Sort:       types.SortTop,
//		Time:       types.TimeWeek,
//		Pagination: types.Pagination{Limit: 10},
//	})
//
// # Error Handling
//
// Dispatch on the error kind rather than on status codes:
//
//	var apiErr *pkgerrs.Error
//	if errors.As(err, &apiErr) {
//		switch apiErr.Kind {
//		case pkgerrs.KindRateLimit:
//			// Reddit's quota is exhausted; apiErr.RetryAfter says for how long.
//		case pkgerrs.KindNotFound:
//			// The subreddit, user or post does not exist.
//		}
//	}
//
// Arguments rejected before anything is sent are returned as *pkgerrs.ValidationError.
//
// # Pagination
//
// Listing responses carry After and Before fullnames. AllPosts walks the pages of a
// listing for you:
//
//	for post, err := range client.AllPosts(ctx, &types.PostsRequest{Subreddit: "golang"}, 250) {
//		if err != nil {
//			break
//		}
//		fmt.Println(post.Title)
//	}
//
// # Concurrency
//
// A Client is safe for concurrent use. Concurrent calls that find the access token
// stale share a single authentication request.
package graw
