// Package tools implements the agent-roster tool catalogue and its MCP server.
//
// A Catalogue holds named tools grouped into packs. Each tool declares a JSON
// schema for its arguments; the same schema is advertised in tools/list and
// checked by Call before the handler runs, so handlers decode arguments that
// are already known to be well formed.
//
// Two packs are provided:
//
//   - AgentPack: save_agent, load_agent, delete_agent, list_agents,
//     query_agents. Saves merge roster.Defaults into the record.
//   - DocumentPack: save_json_doc, load_json_doc, delete_json_doc,
//     query_json_docs. Generic JSON documents without defaults, kept for
//     older clients.
//
// NewServer exposes a Catalogue over MCP. Handler failures become tool
// results with isError set and the error text as content.
package tools
