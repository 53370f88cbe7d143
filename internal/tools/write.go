package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// SubmitPostInput represents input for submit_post tool
type SubmitPostInput struct {
	Subreddit   string `json:"subreddit" jsonschema:"Subreddit to post in"`
	Title       string `json:"title" jsonschema:"Post title (max 300 characters)"`
	Text        string `json:"text,omitempty" jsonschema:"Markdown body for a self post"`
	URL         string `json:"url,omitempty" jsonschema:"Link for a link post; leave empty for a self post"`
	NSFW        bool   `json:"nsfw,omitempty" jsonschema:"Mark the post NSFW"`
	Spoiler     bool   `json:"spoiler,omitempty" jsonschema:"Mark the post as a spoiler"`
	SendReplies *bool  `json:"send_replies,omitempty" jsonschema:"Send replies to the inbox (default true)"`
}

// SubmitCommentInput represents input for submit_comment tool
type SubmitCommentInput struct {
	ParentID string `json:"parent_id" jsonschema:"Fullname of the post (t3_) or comment (t1_) to reply to"`
	Text     string `json:"text" jsonschema:"Markdown body"`
}

// VoteInput represents input for vote tool
type VoteInput struct {
	ID        string `json:"id" jsonschema:"Fullname of the post or comment"`
	Direction int    `json:"direction" jsonschema:"1 to upvote, -1 to downvote, 0 to clear the vote"`
}

// EditTextInput represents input for edit_text tool
type EditTextInput struct {
	ID   string `json:"id" jsonschema:"Fullname of the self post or comment"`
	Text string `json:"text" jsonschema:"New markdown body"`
}

// DeleteThingInput represents input for delete_thing tool
type DeleteThingInput struct {
	ID string `json:"id" jsonschema:"Fullname of the post or comment to delete"`
}

// AckOutput confirms a write that returns no data.
type AckOutput struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

func (s *Server) registerWriteTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "submit_post",
		Description: "Submit a self or link post to a subreddit",
	}, handler(s, "submit_post", func(ctx context.Context, in SubmitPostInput) (any, error) {
		sendReplies := true
		if in.SendReplies != nil {
			sendReplies = *in.SendReplies
		}
		return s.client.SubmitPost(ctx, &types.SubmitPostRequest{
			Subreddit:   in.Subreddit,
			Title:       in.Title,
			Text:        in.Text,
			URL:         in.URL,
			NSFW:        in.NSFW,
			Spoiler:     in.Spoiler,
			SendReplies: sendReplies,
		})
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "submit_comment",
		Description: "Reply to a post or comment",
	}, handler(s, "submit_comment", func(ctx context.Context, in SubmitCommentInput) (any, error) {
		return s.client.SubmitComment(ctx, &types.CommentRequest{ParentID: in.ParentID, Text: in.Text})
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vote",
		Description: "Upvote, downvote or clear a vote on a post or comment",
	}, handler(s, "vote", func(ctx context.Context, in VoteInput) (any, error) {
		if err := s.client.Vote(ctx, &types.VoteRequest{ID: in.ID, Direction: in.Direction}); err != nil {
			return nil, err
		}
		return &AckOutput{Success: true, ID: in.ID}, nil
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "edit_text",
		Description: "Replace the body of your self post or comment",
	}, handler(s, "edit_text", func(ctx context.Context, in EditTextInput) (any, error) {
		return s.client.EditText(ctx, &types.EditRequest{ID: in.ID, Text: in.Text})
	}))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_thing",
		Description: "Delete your post or comment",
	}, handler(s, "delete_thing", func(ctx context.Context, in DeleteThingInput) (any, error) {
		if err := s.client.Delete(ctx, in.ID); err != nil {
			return nil, err
		}
		return &AckOutput{Success: true, ID: in.ID}, nil
	}))
}
