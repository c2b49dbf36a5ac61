// Package config loads the settings of the Generect MCP server.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML or TOML file, and environment variables. File contents may
// reference environment variables as ${VAR_NAME}.
//
//	api:
//	  base_url: "https://api.generect.com"
//	  key: "${GENERECT_API_KEY}"
//	  timeout: "120s"
//	server:
//	  port: 3000
//	  path: "/mcp"
//	  session_idle_timeout: "30m"
//	  allowed_origins: ["*"]
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	  debug: false
//
// Environment overrides: GENERECT_API_BASE, GENERECT_API_KEY,
// GENERECT_TIMEOUT_MS (milliseconds), MCP_PORT, MCP_DEBUG ("1" or "true"),
// MCP_SESSION_IDLE_TIMEOUT (Go duration, "0" disables eviction),
// MCP_LOG_FORMAT and MCP_LOG_LEVEL.
package config
