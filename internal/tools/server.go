// Package tools exposes the Reddit client as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	graw "github.com/jamesprial/reddit-mcp-server"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "reddit-mcp-server"

// Client is the part of *graw.Client the tools call.
type Client interface {
	GetPosts(ctx context.Context, request *types.PostsRequest) (*types.PostsResponse, error)
	AllPosts(ctx context.Context, request *types.PostsRequest, maxPosts int) iter.Seq2[*types.Post, error]
	Search(ctx context.Context, request *types.SearchRequest) (*types.PostsResponse, error)
	GetComments(ctx context.Context, request *types.CommentsRequest) (*types.CommentsResponse, error)
	GetMoreComments(ctx context.Context, request *types.MoreCommentsRequest) ([]*types.Comment, error)
	GetSubreddit(ctx context.Context, name string) (*types.Subreddit, error)
	GetUser(ctx context.Context, username string) (*types.Account, error)
	Me(ctx context.Context) (*types.Account, error)
	SubmitPost(ctx context.Context, request *types.SubmitPostRequest) (*types.SubmitResult, error)
	SubmitComment(ctx context.Context, request *types.CommentRequest) (*types.Comment, error)
	EditText(ctx context.Context, request *types.EditRequest) (*types.Comment, error)
	Vote(ctx context.Context, request *types.VoteRequest) error
	Delete(ctx context.Context, id string) error
	Status() graw.Status
}

var _ Client = (*graw.Client)(nil)

// Server wraps the MCP server and the Reddit client behind it.
type Server struct {
	server *mcp.Server
	client Client
	logger *slog.Logger
}

// NewServer creates an MCP server with every Reddit tool registered.
func NewServer(client Client, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil),
		client: client,
		logger: logger,
	}
	s.registerReadTools()
	s.registerWriteTools()
	return s
}

// MCPServer returns the underlying server, e.g. to connect a transport in tests.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Run serves MCP over t until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("mcp server starting", "name", ServerName)
	return s.server.Run(ctx, t)
}

// handler adapts fn to a typed tool handler. Every call is logged under its own
// call id. Failures are returned as tool errors whose text is the JSON form of
// pkgerrs.Description so agents can branch on the kind.
func handler[In any](s *Server, tool string, fn func(ctx context.Context, in In) (any, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		logger := s.logger.With("tool", tool, "call_id", uuid.NewString())
		start := time.Now()
		logger.Debug("tool call started")

		out, err := fn(ctx, in)
		if err != nil {
			desc := pkgerrs.Describe(err)
			logger.Warn("tool call failed",
				"kind", desc.Kind, "status", desc.StatusCode, "error", desc.Message, "duration", time.Since(start))
			return errorResult(desc), nil, nil
		}

		logger.Info("tool call completed", "duration", time.Since(start))
		return jsonResult(out), nil, nil
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(pkgerrs.Describe(err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func errorResult(desc pkgerrs.Description) *mcp.CallToolResult {
	data, _ := json.Marshal(desc)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
