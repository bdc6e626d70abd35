package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "web" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"evt1","language":"` + r.URL.Query().Get("lang") + `"}]}`))
	})
	mux.HandleFunc("/api/events/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"That event ID does not exist"}}`))
	})
	mux.HandleFunc("/events.ics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, s *MCPServer, lines ...string) []JSONRPCResponse {
	t.Helper()
	var out bytes.Buffer
	s.Run(strings.NewReader(strings.Join(lines, "\n")), &out)

	var responses []JSONRPCResponse
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r JSONRPCResponse
		require.NoError(t, dec.Decode(&r))
		responses = append(responses, r)
	}
	return responses
}

func toolText(t *testing.T, r JSONRPCResponse) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(r.Result)
	require.NoError(t, err)
	var res ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Len(t, res.Content, 1)
	return res.Content[0].Text, res.IsError
}

func TestRun_InitializeAndList(t *testing.T) {
	s := NewMCPServer("http://unused", "", "")
	resp := call(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
	)
	require.Len(t, resp, 3)

	raw, _ := json.Marshal(resp[1].Result)
	var list ToolsListResult
	require.NoError(t, json.Unmarshal(raw, &list))
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"eventbot_list_events", "eventbot_get_event", "eventbot_ics_feed"}, names)

	require.NotNil(t, resp[2].Error)
	assert.Equal(t, codeMethodNotFound, resp[2].Error.Code)
}

func TestToolsCall(t *testing.T) {
	api := newAPI(t)
	s := NewMCPServer(api.URL+"/", "web", "secret")

	resp := call(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"eventbot_list_events","arguments":{"lang":"es"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"eventbot_get_event","arguments":{"id":"missing"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"eventbot_get_event","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"eventbot_ics_feed"}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"eventbot_delete_event"}}`,
	)
	require.Len(t, resp, 5)

	text, isErr := toolText(t, resp[0])
	assert.False(t, isErr)
	assert.Contains(t, text, `"id": "evt1"`)
	assert.Contains(t, text, `"language": "es"`)

	text, isErr = toolText(t, resp[1])
	assert.True(t, isErr)
	assert.Equal(t, "API Error (not_found): That event ID does not exist", text)

	text, isErr = toolText(t, resp[2])
	assert.True(t, isErr)
	assert.Equal(t, "id is required", text)

	text, isErr = toolText(t, resp[3])
	assert.False(t, isErr)
	assert.True(t, strings.HasPrefix(text, "BEGIN:VCALENDAR"))

	_, isErr = toolText(t, resp[4])
	assert.True(t, isErr)
}
