package helpers

import (
	"fmt"
	"strings"
)

// JSONGenerator creates malformed and oversized Reddit payloads for testing
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// GenerateDeeplyNestedComment creates a single comment whose reply chain is depth levels deep
func (g *JSONGenerator) GenerateDeeplyNestedComment(depth int) string {
	replies := `""`
	for i := depth - 1; i >= 0; i-- {
		comment := fmt.Sprintf(`{"kind":"t1","data":{"id":"c%d","name":"t1_c%d","author":"testuser","body":"depth %d","replies":%s}}`,
			i, i, i, replies)
		if i == 0 {
			return comment
		}
		replies = `{"kind":"Listing","data":{"children":[` + comment + `]}}`
	}
	return replies
}

// GenerateCommentsPage wraps top level comments in the [post, comments] array the
// comments endpoint returns.
func (g *JSONGenerator) GenerateCommentsPage(postID string, comments ...string) string {
	return fmt.Sprintf(`[{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":%q,"name":"t3_%s","title":"post"}}]}},`+
		`{"kind":"Listing","data":{"children":[%s]}}]`, postID, postID, strings.Join(comments, ","))
}

// GenerateLargeListing creates a post listing with size children
func (g *JSONGenerator) GenerateLargeListing(size int) string {
	children := make([]string, size)
	for i := range children {
		children[i] = fmt.Sprintf(`{"kind":"t3","data":{"id":"p%d","name":"t3_p%d","title":"post %d"}}`, i, i, i)
	}
	return `{"kind":"Listing","data":{"after":null,"children":[` + strings.Join(children, ",") + `]}}`
}

// GenerateMalformedJSON creates bodies that are not valid JSON
func (g *JSONGenerator) GenerateMalformedJSON() []string {
	return []string{
		``,
		`{`,
		`{"kind": "Listing", "data": {"children": [`,
		`{"kind": "Listing" "data": {}}`,
		`{'kind': 'Listing'}`,
		`<html><body>Our CDN was unable to reach our servers</body></html>`,
	}
}

// GenerateMalformedListing creates listings that parse as JSON but have the wrong shape
func (g *JSONGenerator) GenerateMalformedListing() []string {
	return []string{
		// Empty children array
		`{"kind": "Listing", "data": {"children": []}}`,

		// Null children
		`{"kind": "Listing", "data": {"children": null}}`,

		// Children as object instead of array
		`{"kind": "Listing", "data": {"children": {"test": "invalid"}}}`,

		// Missing data
		`{"kind": "Listing"}`,

		// Wrong envelope kind
		`{"kind": "t3", "data": {"id": "post"}}`,

		// Mixed types in children
		`{"kind": "Listing", "data": {"children": [{"kind": "t1", "data": {"id": "comment"}}, null, {"kind": "t3", "data": {"id": "post"}}]}}`,

		// Post data with wrong field types
		`{"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {"id": 12345, "score": "high"}}]}}`,

		// Array at the top level
		`[]`,
	}
}

// GenerateMalformedTokenResponses creates token endpoint bodies that carry no usable token
func (g *JSONGenerator) GenerateMalformedTokenResponses() map[string]string {
	return map[string]string{
		"empty_access_token": `{"access_token": "", "token_type": "bearer", "expires_in": 3600}`,
		"missing_token":      `{"token_type": "bearer", "expires_in": 3600}`,
		"oauth_error":        `{"error": "invalid_grant"}`,
		"null_token":         `{"access_token": null, "expires_in": 3600}`,
		"token_as_number":    `{"access_token": 12345, "expires_in": 3600}`,
		"truncated":          `{"access_token": "abc`,
		"not_json":           `<html>Bad Gateway</html>`,
	}
}

// GenerateOversizedTokenResponse creates a token response with an access token of size bytes
func (g *JSONGenerator) GenerateOversizedTokenResponse(size int) string {
	return fmt.Sprintf(`{"access_token": %q, "token_type": "bearer", "expires_in": 3600}`, strings.Repeat("A", size))
}
