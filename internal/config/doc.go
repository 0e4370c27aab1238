// Package config handles configuration loading for agent-roster.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by extension) with
// environment variable expansion. Every field has a default, so the gateway
// and the tool server both run without a file.
//
// # Configuration File
//
// LoadOrDefault looks at, in order:
//
//  1. The path passed on the command line
//  2. The ROSTER_CONFIG environment variable
//  3. Built-in defaults
//
// A .env file in the working directory is loaded first by LoadDotEnv.
//
// # Environment Variables
//
// Values can reference environment variables:
//
//	database:
//	  redis_password: "${REDIS_PASSWORD}"
//
// These variables override the file after loading:
//
//	PORT              port of server.http_addr
//	ROSTER_DB_DRIVER  database.driver
//	ROSTER_DB_PATH    database.path
//	REDIS_ADDR        database.redis_addr
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	tools:
//	  handshake_timeout: "10s"
//	  call_timeout: "30s"
//	  health_interval: "30s"
//
// # Configuration Sections
//
// See ExampleYAML for every section with its default values.
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(*configPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
