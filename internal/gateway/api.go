// ABOUTME: HTTP handlers translating agent REST routes into tool calls
// ABOUTME: Parses request bodies and paths, and wraps tool text in JSON envelopes

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/2389/agent-roster/internal/bridge"
	"github.com/2389/agent-roster/internal/roster"
)

const (
	// IdempotencyKeyHeader carries a client-chosen key for save requests.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader is set to "true" on replayed save responses.
	IdempotentReplayHeader = "Idempotent-Replayed"

	// maxBodyBytes caps request bodies.
	maxBodyBytes = 1 << 20
)

// saveAgentRequest is the body of POST /api/save-agent. Top-level fields
// other than context are stored as given.
type saveAgentRequest map[string]any

// handleListAgents handles GET /api/list-agents
func (g *Gateway) handleListAgents(w http.ResponseWriter, r *http.Request) {
	out, err := g.call(r, "list_agents", nil)
	if err != nil {
		g.sendToolError(w, "list_agents", err)
		return
	}
	g.sendToolJSON(w, "agents", out)
}

// handleSaveAgent handles POST /api/save-agent
func (g *Gateway) handleSaveAgent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req saveAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusInternalServerError, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	name, _ := req[roster.FieldName].(string)
	if name == "" {
		g.sendJSONError(w, http.StatusInternalServerError, "Missing required field: 'name'")
		return
	}

	args := map[string]any{"doc": agentDoc(req)}
	save := func() (string, error) {
		return g.call(r, "save_agent", args)
	}

	var (
		msg      string
		replayed bool
		err      error
	)
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		msg, replayed, err = g.dedupe.Do(key, save)
	} else {
		msg, err = save()
	}
	if err != nil {
		g.sendToolError(w, "save_agent", err)
		return
	}

	if replayed {
		w.Header().Set(IdempotentReplayHeader, "true")
		g.logger.Debug("replayed idempotent save", "name", name)
	}
	g.sendJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// agentDoc flattens a save request into the agent record. The optional
// context object contributes only @context, securityDefinitions and security.
func agentDoc(req saveAgentRequest) map[string]any {
	doc := make(map[string]any, len(req)+3)
	for k, v := range req {
		if k == "context" {
			continue
		}
		doc[k] = v
	}

	ctxObj, ok := req["context"].(map[string]any)
	if !ok {
		return doc
	}
	for _, field := range []string{roster.FieldContext, roster.FieldSecurityDefinitions, roster.FieldSecurity} {
		if v, ok := ctxObj[field]; ok && v != nil {
			doc[field] = v
		}
	}
	return doc
}

// handleDeleteAgent handles DELETE /api/delete-agent/{id}. The id is the last
// path segment, so a trailing slash means no id.
func (g *Gateway) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	rest := r.PathValue("rest")
	id := rest[strings.LastIndex(rest, "/")+1:]
	if id == "" {
		g.sendJSONError(w, http.StatusInternalServerError, "ID is required")
		return
	}

	msg, err := g.call(r, "delete_agent", map[string]any{"id": id})
	if err != nil {
		g.sendToolError(w, "delete_agent", err)
		return
	}
	g.sendJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// handleLoadAgent handles GET /api/load-agent/{id}
func (g *Gateway) handleLoadAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		g.sendJSONError(w, http.StatusInternalServerError, "ID is required")
		return
	}

	out, err := g.call(r, "load_agent", map[string]any{"id": id})
	if err != nil {
		g.sendToolError(w, "load_agent", err)
		return
	}
	g.sendToolJSON(w, "agent", out)
}

// handleQueryAgents handles GET /api/query-agents
func (g *Gateway) handleQueryAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortField := q.Get("sort_field")
	if sortField == "" {
		sortField = roster.FieldCreated
	}
	args := map[string]any{"sort_field": sortField}

	if v := q.Get("descending"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			g.sendJSONError(w, http.StatusInternalServerError, fmt.Sprintf("invalid descending value %q", v))
			return
		}
		args["descending"] = desc
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			g.sendJSONError(w, http.StatusInternalServerError, fmt.Sprintf("invalid limit value %q", v))
			return
		}
		args["limit"] = limit
	}

	out, err := g.call(r, "query_agents", args)
	if err != nil {
		g.sendToolError(w, "query_agents", err)
		return
	}
	g.sendToolJSON(w, "agents", out)
}

// handleNotFound answers every request no other route matched.
func (g *Gateway) handleNotFound(w http.ResponseWriter, r *http.Request) {
	g.sendJSONError(w, http.StatusNotFound, "Not Found")
}

// call runs a tool for r. A disconnected client does not abort the call;
// the pool's call timeout still bounds it.
func (g *Gateway) call(r *http.Request, tool string, args map[string]any) (string, error) {
	return g.tools.CallTool(context.WithoutCancel(r.Context()), tool, args)
}

// sendToolJSON wraps the JSON text a tool returned under key.
func (g *Gateway) sendToolJSON(w http.ResponseWriter, key, text string) {
	if !json.Valid([]byte(text)) {
		g.logger.Error("tool returned invalid JSON", "key", key, "text", text)
		g.sendJSONError(w, http.StatusInternalServerError, "tool returned invalid JSON")
		return
	}
	g.sendJSON(w, http.StatusOK, map[string]json.RawMessage{key: json.RawMessage(text)})
}

// sendToolError maps a tool call failure to a status code.
func (g *Gateway) sendToolError(w http.ResponseWriter, tool string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		g.logger.Warn("tool call failed", "tool", tool, "status", status, "error", err)
	}
	g.sendJSONError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.sendJSON(w, status, map[string]string{"error": message})
}
