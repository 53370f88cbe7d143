// Package types holds the Reddit data model exchanged between the client and its
// callers, along with the request shapes for every client operation.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind prefixes of Reddit fullnames.
const (
	KindComment   = "t1"
	KindAccount   = "t2"
	KindLink      = "t3"
	KindMessage   = "t4"
	KindSubreddit = "t5"
	KindMore      = "more"
	KindListing   = "Listing"
)

// Thing is the envelope Reddit wraps every object in.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// ThingData holds the identifiers common to every object.
type ThingData struct {
	ID   string `json:"id"`   // base36 id without prefix
	Name string `json:"name"` // fullname, e.g. "t3_abc123"
}

// GetID returns the object's id.
func (td ThingData) GetID() string {
	return td.ID
}

// GetName returns the object's fullname.
func (td ThingData) GetName() string {
	return td.Name
}

// Votable is embedded by things that carry a score.
type Votable struct {
	Ups   int `json:"ups"`
	Downs int `json:"downs"`
	// Likes is the authenticated user's vote: true up, false down, nil none.
	Likes *bool `json:"likes"`
}

// Created is embedded by things that carry a creation time.
type Created struct {
	Created    float64 `json:"created"`
	CreatedUTC float64 `json:"created_utc"`
}

// Edited is either false, true (old edits) or the edit timestamp.
type Edited struct {
	IsEdited  bool
	Timestamp float64
}

// UnmarshalJSON accepts a boolean, null or a float timestamp.
func (e *Edited) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(data))) {
	case "false", "null":
		*e = Edited{}
		return nil
	case "true":
		*e = Edited{IsEdited: true}
		return nil
	}

	var ts float64
	if err := json.Unmarshal(data, &ts); err != nil {
		return fmt.Errorf("unrecognized type for 'edited' field: %s", data)
	}
	*e = Edited{IsEdited: true, Timestamp: ts}
	return nil
}

// MarshalJSON writes the timestamp when known, otherwise the boolean.
func (e Edited) MarshalJSON() ([]byte, error) {
	if e.IsEdited && e.Timestamp != 0 {
		return json.Marshal(e.Timestamp)
	}
	return json.Marshal(e.IsEdited)
}

// Listing is the paginated container returned by every list endpoint.
type Listing struct {
	Before   string   `json:"before"`
	After    string   `json:"after"`
	Children []*Thing `json:"children"`
}

// Post is a link or self post (kind t3).
type Post struct {
	ThingData
	Votable
	Created
	Author        string  `json:"author"`
	Domain        string  `json:"domain"`
	IsSelf        bool    `json:"is_self"`
	LinkFlairText *string `json:"link_flair_text"`
	Locked        bool    `json:"locked"`
	NumComments   int     `json:"num_comments"`
	Over18        bool    `json:"over_18"`
	Permalink     string  `json:"permalink"`
	Score         int     `json:"score"`
	SelfText      string  `json:"selftext"`
	Spoiler       bool    `json:"spoiler"`
	Stickied      bool    `json:"stickied"`
	Subreddit     string  `json:"subreddit"`
	Title         string  `json:"title"`
	UpvoteRatio   float64 `json:"upvote_ratio"`
	URL           string  `json:"url"`
	Edited        Edited  `json:"edited"`
	Distinguished *string `json:"distinguished"`
}

// Comment is a comment (kind t1) with its reply tree.
type Comment struct {
	ThingData
	Votable
	Created
	Author        string     `json:"author"`
	Body          string     `json:"body"`
	Depth         int        `json:"depth"`
	Edited        Edited     `json:"edited"`
	IsSubmitter   bool       `json:"is_submitter"`
	LinkID        string     `json:"link_id"`
	ParentID      string     `json:"parent_id"`
	Permalink     string     `json:"permalink"`
	Score         int        `json:"score"`
	ScoreHidden   bool       `json:"score_hidden"`
	Stickied      bool       `json:"stickied"`
	Subreddit     string     `json:"subreddit"`
	Distinguished *string    `json:"distinguished"`
	Replies       []*Comment `json:"replies,omitempty"`
	// MoreIDs are ids of truncated replies that can be loaded with GetMoreComments.
	MoreIDs []string `json:"more_ids,omitempty"`
}

// UnmarshalJSON decodes a comment. Reddit sends "replies" as either a Listing or
// the empty string; the reply tree is filled in by the parser, not here.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	var raw struct {
		*plain
		Replies json.RawMessage `json:"replies"`
	}
	raw.plain = (*plain)(c)
	return json.Unmarshal(data, &raw)
}

// Subreddit is a community (kind t5).
type Subreddit struct {
	ThingData
	Created
	ActiveUserCount   int     `json:"active_user_count"`
	Description       string  `json:"description"`
	DisplayName       string  `json:"display_name"`
	Over18            bool    `json:"over18"`
	PublicDescription string  `json:"public_description"`
	Subscribers       int64   `json:"subscribers"`
	SubmissionType    string  `json:"submission_type"`
	SubredditType     string  `json:"subreddit_type"`
	Title             string  `json:"title"`
	URL               string  `json:"url"`
	UserIsBanned      *bool   `json:"user_is_banned"`
	UserIsModerator   *bool   `json:"user_is_moderator"`
	UserIsSubscriber  *bool   `json:"user_is_subscriber"`
	SubmitTextLabel   *string `json:"submit_text_label"`
}

// Account is a user (kind t2).
type Account struct {
	ThingData
	Created
	CommentKarma     int   `json:"comment_karma"`
	LinkKarma        int   `json:"link_karma"`
	TotalKarma       int   `json:"total_karma"`
	HasVerifiedEmail *bool `json:"has_verified_email"`
	IsGold           bool  `json:"is_gold"`
	IsMod            bool  `json:"is_mod"`
	IsSuspended      bool  `json:"is_suspended"`
	Over18           bool  `json:"over_18"`
	InboxCount       int   `json:"inbox_count,omitempty"`
}

// More is a placeholder for comments that were left out of a tree.
type More struct {
	ThingData
	Count    int      `json:"count"`
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"`
}
