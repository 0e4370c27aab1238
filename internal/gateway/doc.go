// Package gateway serves the agent-roster HTTP API.
//
// # Routes
//
//	GET    /api/list-agents          list_agents   -> {"agents": [...]}
//	POST   /api/save-agent           save_agent    -> {"message": "..."}
//	DELETE /api/delete-agent/{id}    delete_agent  -> {"message": "..."}
//	GET    /api/load-agent/{id}      load_agent    -> {"agent": {...}}
//	GET    /api/query-agents         query_agents  -> {"agents": [...]}
//	GET    /health                   liveness
//	GET    /health/ready             a tool session answers a ping
//
// OPTIONS requests get 204 with no body. Anything else gets 404
// {"error": "Not Found"}.
//
// # Errors
//
// Failures are returned as {"error": message}. Deadlines map to 504,
// everything else to 500. Each request writes exactly one response, even if
// a handler panics.
//
// # Idempotency
//
// POST /api/save-agent honors an Idempotency-Key header: the first
// successful response for a key is replayed for the configured TTL without
// saving again.
package gateway
