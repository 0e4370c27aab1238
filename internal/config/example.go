// ABOUTME: Annotated default configuration written by "roster-gateway init"
// ABOUTME: Kept in sync with applyDefaults by TestExampleYAML_MatchesDefaults

package config

import (
	"fmt"
	"os"
)

// ExampleYAML is a complete configuration file with every default spelled out.
const ExampleYAML = `# agent-roster configuration

server:
  http_addr: ":3001"        # PORT overrides the port
  shutdown_timeout: "5s"

tools:
  command: "roster-tools"   # tool server binary, resolved on PATH
  args: []
  pool_size: 4              # warm sessions, one in-flight call each
  handshake_timeout: "10s"
  call_timeout: "30s"
  health_interval: "30s"

database:
  driver: "sqlite"          # sqlite, sqlite3, redis, memory
  path: "roster.db"         # ROSTER_DB_PATH overrides
  redis_addr: "localhost:6379"
  redis_password: "${REDIS_PASSWORD}"
  redis_db: 0
  redis_prefix: "roster:"

# Merged into agents saved without their own values.
defaults:
  context:
    "@vocab": "https://schema.org/"
    did: "https://w3id.org/did#"
    ad: "https://service.multiversity.ai/ad#"
  security_definitions:
    didwba_sc:
      scheme: "didwba"
      in: "header"
      name: "Authorization"
  security: "didwba_sc"

idempotency:
  ttl: "10m"
  max_entries: 1000

logging:
  level: "info"             # debug, info, warn, error
  format: "text"            # text, json
`

// WriteExample writes ExampleYAML to path. It refuses to overwrite an
// existing file unless force is set.
func WriteExample(path string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	if _, err := f.WriteString(ExampleYAML); err != nil {
		f.Close()
		return fmt.Errorf("writing config file: %w", err)
	}
	return f.Close()
}
