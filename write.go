package graw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jamesprial/reddit-mcp-server/internal"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// write posts form to an api_type=json endpoint and decodes the envelope's data
// into v. A non-empty errors array becomes a *pkgerrs.Error.
func (c *Client) write(ctx context.Context, op string, retryable bool, path string, form url.Values, v any) error {
	if form.Get("api_type") == "" {
		form.Set("api_type", "json")
	}

	return c.call(ctx, op, retryable, func(ctx context.Context, api *internal.Client) (*http.Response, error) {
		req, err := api.NewFormRequest(ctx, path, form)
		if err != nil {
			return nil, err
		}
		var envelope types.WriteResponse
		resp, err := api.Do(req, &envelope)
		if err != nil {
			return resp, err
		}
		if err := envelopeError(resp.StatusCode, &envelope); err != nil {
			return resp, err
		}
		if v != nil && len(envelope.JSON.Data) > 0 {
			if err := json.Unmarshal(envelope.JSON.Data, v); err != nil {
				return resp, &pkgerrs.Error{Kind: pkgerrs.KindUnknown, StatusCode: resp.StatusCode, Message: "failed to decode " + op + " response", Err: err}
			}
		}
		return resp, nil
	})
}

// envelopeError converts the first [code, message, field] triple into an error.
func envelopeError(status int, envelope *types.WriteResponse) error {
	if len(envelope.JSON.Errors) == 0 {
		return nil
	}

	first := envelope.JSON.Errors[0]
	e := &pkgerrs.Error{Kind: pkgerrs.KindUnknown, StatusCode: status, Details: envelope.JSON.Errors}
	if len(first) > 0 {
		e.Code = fmt.Sprint(first[0])
	}
	if len(first) > 1 {
		e.Message = fmt.Sprint(first[1])
	}
	if len(first) > 2 && first[2] != nil && first[2] != "" {
		e.Message = fmt.Sprintf("%s (field %v)", e.Message, first[2])
	}
	if e.Message == "" {
		e.Message = "reddit rejected the request"
	}
	return e
}

// plainPost posts form to an endpoint that answers with an empty object on success.
// Only idempotent endpoints use it, so it is retried.
func (c *Client) plainPost(ctx context.Context, op string, path string, form url.Values) error {
	return c.call(ctx, op, true, func(ctx context.Context, api *internal.Client) (*http.Response, error) {
		req, err := api.NewFormRequest(ctx, path, form)
		if err != nil {
			return nil, err
		}
		return api.Do(req, nil)
	})
}

// SubmitPost creates a self or link post.
func (c *Client) SubmitPost(ctx context.Context, request *types.SubmitPostRequest) (*types.SubmitResult, error) {
	if request == nil {
		return nil, &pkgerrs.ValidationError{Message: "submit request cannot be nil"}
	}
	req := *request
	req.Subreddit = trimSubreddit(req.Subreddit)
	if req.Kind == "" {
		req.Kind = types.SubmitSelf
		if req.URL != "" {
			req.Kind = types.SubmitLink
		}
	}
	if err := c.validator.ValidateSubmitPost(&req); err != nil {
		return nil, err
	}

	form := url.Values{
		"sr":          {req.Subreddit},
		"title":       {req.Title},
		"kind":        {req.Kind},
		"nsfw":        {strconv.FormatBool(req.NSFW)},
		"spoiler":     {strconv.FormatBool(req.Spoiler)},
		"sendreplies": {strconv.FormatBool(req.SendReplies)},
		"resubmit":    {"true"},
	}
	if req.Kind == types.SubmitLink {
		form.Set("url", req.URL)
	} else {
		form.Set("text", req.Text)
	}

	var result types.SubmitResult
	if err := c.write(ctx, "submit_post", false, "api/submit", form, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitComment replies to a post (t3) or comment (t1).
func (c *Client) SubmitComment(ctx context.Context, request *types.CommentRequest) (*types.Comment, error) {
	if request == nil {
		return nil, &pkgerrs.ValidationError{Message: "comment request cannot be nil"}
	}
	if err := c.validator.ValidateFullname("parent_id", request.ParentID, types.KindLink, types.KindComment); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateText(request.Text); err != nil {
		return nil, err
	}

	form := url.Values{"thing_id": {request.ParentID}, "text": {request.Text}}
	var data struct {
		Things []*types.Thing `json:"things"`
	}
	if err := c.write(ctx, "submit_comment", false, "api/comment", form, &data); err != nil {
		return nil, err
	}
	return c.firstComment(data.Things)
}

// EditText replaces the body of a self post or comment. An edited post is returned
// in comment form with its self text as the body.
func (c *Client) EditText(ctx context.Context, request *types.EditRequest) (*types.Comment, error) {
	if request == nil {
		return nil, &pkgerrs.ValidationError{Message: "edit request cannot be nil"}
	}
	if err := c.validator.ValidateFullname("id", request.ID, types.KindLink, types.KindComment); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateText(request.Text); err != nil {
		return nil, err
	}

	form := url.Values{"thing_id": {request.ID}, "text": {request.Text}}
	var data struct {
		Things []*types.Thing `json:"things"`
	}
	if err := c.write(ctx, "edit_text", false, "api/editusertext", form, &data); err != nil {
		return nil, err
	}
	if len(data.Things) > 0 && data.Things[0].Kind == types.KindLink {
		post, err := c.parser.ParseLink(data.Things[0])
		if err != nil {
			return nil, err
		}
		return &types.Comment{ThingData: post.ThingData, Body: post.SelfText, Author: post.Author, Permalink: post.Permalink}, nil
	}
	return c.firstComment(data.Things)
}

func (c *Client) firstComment(things []*types.Thing) (*types.Comment, error) {
	for _, thing := range things {
		if thing != nil && thing.Kind == types.KindComment {
			return c.parser.ParseComment(thing)
		}
	}
	return nil, &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: "response contained no comment"}
}

// Vote casts an upvote (1), downvote (-1) or clears the vote (0).
func (c *Client) Vote(ctx context.Context, request *types.VoteRequest) error {
	if request == nil {
		return &pkgerrs.ValidationError{Message: "vote request cannot be nil"}
	}
	if err := c.validator.ValidateFullname("id", request.ID, types.KindLink, types.KindComment); err != nil {
		return err
	}
	if err := c.validator.ValidateVoteDirection(request.Direction); err != nil {
		return err
	}

	return c.plainPost(ctx, "vote", "api/vote", url.Values{
		"id":  {request.ID},
		"dir": {strconv.Itoa(request.Direction)},
	})
}

// Delete removes a post or comment owned by the authenticated user.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.validator.ValidateFullname("id", id, types.KindLink, types.KindComment); err != nil {
		return err
	}
	return c.plainPost(ctx, "delete", "api/del", url.Values{"id": {id}})
}
