package hub

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mcpServer exposes the hub's read-only state over the Model Context
// Protocol (SPEC_FULL.md §4.9 expansion): an LLM client can ask for
// the receiver's control-channel frequency, which talkgroups it has seen
// marked encrypted, and its current SSE subscriber count, without any
// ability to mutate state.
type mcpServer struct {
	snap       *snapshot
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	subCount   func() int
}

// EnableMCP wires a read-only MCP tool server into this hub Server.
func (s *Server) EnableMCP() {
	m := &mcpServer{
		snap: s.snap,
		subCount: func() int {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			return len(s.subs)
		},
	}
	m.mcpServer = server.NewMCPServer("p25rx", "1.0.0", server.WithToolCapabilities(true))
	m.registerTools()
	m.httpServer = server.NewStreamableHTTPServer(m.mcpServer)
	s.mcp = m
}

func (m *mcpServer) registerTools() {
	m.mcpServer.AddTool(
		mcp.NewTool("get_control_frequency",
			mcp.WithDescription("Get the receiver's current control-channel frequency in Hz."),
		),
		m.handleGetControlFrequency,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("get_encrypted_talkgroups",
			mcp.WithDescription("List talkgroups this receiver has observed carrying encrypted traffic since the last site change."),
		),
		m.handleGetEncryptedTalkgroups,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("get_subscriber_count",
			mcp.WithDescription("Get the number of clients currently subscribed to the live SSE event stream."),
		),
		m.handleGetSubscriberCount,
	)
}

func (m *mcpServer) handleGetControlFrequency(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(map[string]uint32{"ctlfreq": uint32(m.snap.getCtlFreq())})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (m *mcpServer) handleGetEncryptedTalkgroups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(m.snap.encryptedSnapshot())
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (m *mcpServer) handleGetSubscriberCount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(map[string]int{"subscribers": m.subCount()})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (m *mcpServer) handle(w http.ResponseWriter, r *http.Request) {
	m.httpServer.ServeHTTP(w, r)
}
