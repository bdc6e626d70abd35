package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const protocolVersion = "2024-11-05"

// MCPServer exposes the read side of the events API as MCP tools over stdio.
type MCPServer struct {
	apiURL      string
	apiUsername string
	apiPassword string
	client      *http.Client
}

func NewMCPServer(apiURL, username, password string) *MCPServer {
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return &MCPServer{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiUsername: username,
		apiPassword: password,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Run answers one JSON-RPC request per input line until in is exhausted.
// Notifications (requests without an id) get no response.
func (s *MCPServer) Run(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			continue
		}
		if req.ID == nil {
			continue
		}

		_ = enc.Encode(s.handleRequest(req))
	}
}

func (s *MCPServer) handleRequest(req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      serverInfo{Name: "eventbot", Version: "1.0.0"},
		}}
	case "ping":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	case "tools/list":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: tools()}}
	case "tools/call":
		return s.handleToolsCall(req)
	default:
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: codeMethodNotFound, Message: "Method not found: " + req.Method}}
	}
}

func tools() []Tool {
	lang := Property{Type: "string", Description: "Language code such as en or es. Defaults to the reference language."}
	return []Tool{
		{
			Name:        "eventbot_list_events",
			Description: "List every club event, soonest first, in one language.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{"lang": lang}},
		},
		{
			Name:        "eventbot_get_event",
			Description: "Get one club event by its ID.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":   {Type: "string", Description: "Event ID"},
					"lang": lang,
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "eventbot_ics_feed",
			Description: "Get the iCalendar feed of all events in one language.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{"lang": lang}},
		},
	}
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: codeInvalidParams, Message: "Invalid params"},
		}
	}

	query := url.Values{}
	if lang := argument(params.Arguments, "lang"); lang != "" {
		query.Set("lang", lang)
	}

	var result string
	var isError bool

	switch params.Name {
	case "eventbot_list_events":
		result, isError = s.apiGet("/api/events", query)
	case "eventbot_get_event":
		id := argument(params.Arguments, "id")
		if id == "" {
			result, isError = "id is required", true
			break
		}
		result, isError = s.apiGet("/api/events/"+url.PathEscape(id), query)
	case "eventbot_ics_feed":
		result, isError = s.apiGet("/events.ics", query)
	default:
		result = "Unknown tool: " + params.Name
		isError = true
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func argument(args map[string]interface{}, name string) string {
	v, ok := args[name]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

func (s *MCPServer) apiGet(path string, query url.Values) (string, bool) {
	target := s.apiURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return fmt.Sprintf("Error creating request: %v", err), true
	}
	req.SetBasicAuth(s.apiUsername, s.apiPassword)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar") {
		return string(respBody), false
	}

	var apiResp struct {
		Data  json.RawMessage `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return string(respBody), resp.StatusCode >= 400
	}

	if apiResp.Error != nil {
		return fmt.Sprintf("API Error (%s): %s", apiResp.Error.Code, apiResp.Error.Message), true
	}
	if resp.StatusCode >= 400 {
		return fmt.Sprintf("API Error: %s", resp.Status), true
	}

	var prettyData bytes.Buffer
	if err := json.Indent(&prettyData, apiResp.Data, "", "  "); err != nil {
		return string(apiResp.Data), false
	}
	return prettyData.String(), false
}
