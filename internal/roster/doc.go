// Package roster defines the agent record stored in the registry.
//
// # Overview
//
// An agent record is a JSON document with a required name plus protocol
// metadata: a JSON-LD style "@context", a map of security scheme
// definitions, and the list of schemes that apply. The store assigns the
// "_id" and "created" fields; everything else comes from the caller.
//
// # Defaults
//
// Defaults holds the process-wide values for "@context",
// "securityDefinitions" and "security". ApplyDefaults fills each of these
// only when the caller left it out:
//
//	defaults := roster.BuiltinDefaults()
//	doc := defaults.ApplyDefaults(map[string]any{"name": "scout-1"})
//
// The defaults are loaded once from configuration (see internal/config) and
// handed to the tool catalogue; nothing in this package reads global state.
//
// # Listing
//
// Summarize projects a stored document onto the four fields the list view
// shows, substituting placeholders for missing values.
package roster
