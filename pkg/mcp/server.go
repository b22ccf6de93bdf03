package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/internal/engine"
	"github.com/rendis/authflow/internal/logging"
)

// ServerDeps holds the dependencies for creating a Server.
type ServerDeps struct {
	Builder  *builder.Builder
	Executor *engine.Executor // nil disables authflow.start and authflow.signal
	History  *engine.History  // records of Executor; enables execution overlays in authflow.diagram
	Logger   *slog.Logger
	Version  string
}

// Server wraps an MCP server exposing flow introspection tools.
type Server struct {
	builder   *builder.Builder
	executor  *engine.Executor
	history   *engine.History
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a Server with its tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		builder:  deps.Builder,
		executor: deps.Executor,
		history:  deps.History,
		logger:   logger,
	}

	mcpSrv := server.NewMCPServer(
		"authflow",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("authflow exposes login flow graphs. Use authflow.list to find flows, authflow.describe to inspect states and transitions, authflow.resolve to see where an event leads, authflow.validate to check a flow for missing or unreachable states, and authflow.diagram to draw it."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	tools := []server.ServerTool{
		{Tool: listTool(), Handler: s.handleList},
		{Tool: describeTool(), Handler: s.handleDescribe},
		{Tool: resolveTool(), Handler: s.handleResolve},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
	if s.executor != nil {
		tools = append(tools,
			server.ServerTool{Tool: startTool(), Handler: s.handleStart},
			server.ServerTool{Tool: signalTool(), Handler: s.handleSignal},
		)
	}
	return tools
}

// --- Tool definitions ---

func listTool() mcp.Tool {
	return mcp.NewTool("authflow.list",
		mcp.WithDescription("List registered flows"),
	)
}

func describeTool() mcp.Tool {
	return mcp.NewTool("authflow.describe",
		mcp.WithDescription("Describe the states and transitions of a flow"),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("ID of the flow")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("authflow.diagram",
		mcp.WithDescription("Draw a flow graph. Returns ASCII art, Mermaid flowchart syntax, or base64-encoded PNG image"),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("ID of the flow")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (base64 PNG)"),
		),
		mcp.WithBoolean("expand", mcp.Description("Inline one level of subflows")),
		mcp.WithString("execution_id", mcp.Description("Highlight the path of an execution started with authflow.start")),
	)
}

func resolveTool() mcp.Tool {
	return mcp.NewTool("authflow.resolve",
		mcp.WithDescription("Resolve the next state for an event"),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("ID of the flow")),
		mcp.WithString("state_id", mcp.Required(), mcp.Description("ID of the current state")),
		mcp.WithString("event", mcp.Description("Event ID signalled by the state")),
		mcp.WithObject("data", mcp.Description("Evaluation data for predicate transitions")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("authflow.validate",
		mcp.WithDescription("Validate a flow graph, or every flow when flow_id is omitted"),
		mcp.WithString("flow_id", mcp.Description("ID of the flow")),
		mcp.WithString("state_id", mcp.Description("Only report issues of this state (requires flow_id)")),
	)
}

func startTool() mcp.Tool {
	return mcp.NewTool("authflow.start",
		mcp.WithDescription("Start an execution of a flow"),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("ID of the flow")),
		mcp.WithObject("input", mcp.Description("Initial flow scope")),
	)
}

func signalTool() mcp.Tool {
	return mcp.NewTool("authflow.signal",
		mcp.WithDescription("Deliver an event to an execution paused on a view"),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("ID of the execution")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event ID")),
		mcp.WithObject("payload", mcp.Description("Request parameters for the next step")),
	)
}
