package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/store"
)

// Version is reported in the initialize handshake.
const Version = "0.1.0"

// Server handles MCP protocol communication
type Server struct {
	cache *imaging.ImageCache
	opts  pipeline.Options
	store *store.Store
	debug bool
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes. codeToolFailed is in the implementation-defined
// server error range.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

// protocolVersion is the MCP revision this server speaks.
const protocolVersion = "2024-11-05"

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

func reply(id, result interface{}) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func fail(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &MCPError{Code: code, Message: message, Data: data},
	}
}

// New creates a server with default pipeline options that saves plates under
// store.DefaultDir.
func New() *Server {
	return &Server{
		cache: imaging.NewImageCache(imaging.DefaultCacheCapacity),
		opts:  pipeline.DefaultOptions(),
		store: store.New(store.DefaultDir),
	}
}

// NewWithConfig creates a server whose tool defaults come from cfg.
func NewWithConfig(cfg config.Config) (*Server, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	return &Server{
		cache: imaging.NewImageCache(imaging.DefaultCacheCapacity),
		opts:  opts,
		store: store.New(cfg.OutputDir),
		debug: cfg.Debug(),
	}, nil
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// maxRequestSize bounds a single request line. Points arrays are small, but
// clients may inline long paths and many sample points.
const maxRequestSize = 1 << 20

// Serve reads one JSON-RPC message per line from r and writes one response
// line to w for every request. Unparseable lines get a parse error with a
// null ID; notifications get nothing. It returns when r is exhausted or a
// response cannot be written.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp *MCPResponse
		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			resp = fail(nil, codeParseError, "Parse error", err.Error())
		} else {
			resp = s.handleRequest(&req)
		}
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}

// handleRequest routes a request to its method handler. Messages without an
// ID are notifications and never produce a response.
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	var resp *MCPResponse
	switch req.Method {
	case "initialize":
		resp = reply(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      serverInfo{Name: "plate-tools-mcp", Version: Version},
		})
	case "ping":
		resp = reply(req.ID, map[string]interface{}{})
	case "tools/list":
		resp = s.handleToolsList(req)
	case "tools/call":
		resp = s.handleToolsCall(req)
	default:
		resp = fail(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}

	if req.ID == nil {
		return nil
	}
	return resp
}
