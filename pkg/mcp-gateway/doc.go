// Package mcpgateway serves the Generect tool set to many MCP clients over a
// single Streamable HTTP endpoint. Every client gets its own session and its
// own mcp.Server, bound to the Generect credential it presented when it
// initialized; later messages may replace that credential. Messages that do
// not belong to a session are rejected unless they initialize one.
package mcpgateway
