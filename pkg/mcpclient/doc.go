// Package mcpclient dials MCP servers the way Generect clients do: over
// Streamable HTTP with an Authorization header carrying the Generect key, or
// over any other mcp.Transport. It also provides a JSON-RPC logging wrapper
// usable on either side of a transport.
package mcpclient
