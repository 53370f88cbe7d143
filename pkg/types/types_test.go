package types

import (
	"encoding/json"
	"testing"
)

func TestEdited_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantEdit  bool
		wantTime  float64
		wantError bool
	}{
		{name: "false boolean", input: `false`},
		{name: "true boolean", input: `true`, wantEdit: true},
		{name: "null value", input: `null`},
		{name: "timestamp", input: `1234567890.5`, wantEdit: true, wantTime: 1234567890.5},
		{name: "invalid value", input: `"invalid"`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Edited
			err := json.Unmarshal([]byte(tt.input), &e)

			if (err != nil) != tt.wantError {
				t.Errorf("Edited.UnmarshalJSON() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if err != nil {
				return
			}

			if e.IsEdited != tt.wantEdit {
				t.Errorf("Edited.IsEdited = %v, want %v", e.IsEdited, tt.wantEdit)
			}
			if e.Timestamp != tt.wantTime {
				t.Errorf("Edited.Timestamp = %v, want %v", e.Timestamp, tt.wantTime)
			}
		})
	}
}

func TestEdited_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Edited
		want string
	}{
		{name: "not edited", in: Edited{}, want: `false`},
		{name: "old edit", in: Edited{IsEdited: true}, want: `true`},
		{name: "timestamp", in: Edited{IsEdited: true, Timestamp: 1700000000}, want: `1700000000`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComment_UnmarshalIgnoresRawReplies(t *testing.T) {
	tests := []struct {
		name    string
		replies string
	}{
		{name: "empty string", replies: `""`},
		{name: "listing", replies: `{"kind":"Listing","data":{"children":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := `{"id":"c1","name":"t1_c1","author":"alice","body":"hi","edited":false,"replies":` + tt.replies + `}`
			var c Comment
			if err := json.Unmarshal([]byte(data), &c); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if c.ID != "c1" || c.Name != "t1_c1" || c.Author != "alice" || c.Body != "hi" {
				t.Errorf("Comment = %+v", c)
			}
			if c.Replies != nil {
				t.Errorf("Replies = %v, want nil until parsed", c.Replies)
			}
		})
	}
}

func TestPost_EmbeddedFields(t *testing.T) {
	data := `{"id":"abc","name":"t3_abc","ups":10,"downs":2,"likes":true,"created_utc":1700000000,"title":"hello","edited":1700000100}`

	var p Post
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.GetID() != "abc" || p.GetName() != "t3_abc" {
		t.Errorf("ids = %q, %q", p.GetID(), p.GetName())
	}
	if p.Ups != 10 || p.Downs != 2 || p.Likes == nil || !*p.Likes {
		t.Errorf("votable = %+v", p.Votable)
	}
	if p.CreatedUTC != 1700000000 {
		t.Errorf("CreatedUTC = %v", p.CreatedUTC)
	}
	if !p.Edited.IsEdited || p.Edited.Timestamp != 1700000100 {
		t.Errorf("Edited = %+v", p.Edited)
	}
}

func TestWriteResponse_Unmarshal(t *testing.T) {
	data := `{"json":{"errors":[["SUBREDDIT_NOEXIST","that subreddit doesn't exist","sr"]],"data":{}}}`

	var w WriteResponse
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(w.JSON.Errors) != 1 || len(w.JSON.Errors[0]) != 3 {
		t.Fatalf("Errors = %v", w.JSON.Errors)
	}
	if w.JSON.Errors[0][0] != "SUBREDDIT_NOEXIST" {
		t.Errorf("code = %v", w.JSON.Errors[0][0])
	}
}
