package mcpclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RPCDirection represents the direction of an observed JSON-RPC message.
type RPCDirection string

const (
	RPCDirectionSend    RPCDirection = "send"
	RPCDirectionReceive RPCDirection = "receive"
)

// RPCLogEvent encapsulates JSON-RPC traffic for custom logging.
type RPCLogEvent struct {
	Direction RPCDirection
	Message   []byte
	// Peer names the other end of the transport.
	Peer string
}

// RPCLogger is invoked for each JSON-RPC message when logging is enabled.
type RPCLogger func(RPCLogEvent)

// SlogRPCLogger writes every event to logger at debug level.
func SlogRPCLogger(logger *slog.Logger) RPCLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return func(event RPCLogEvent) {
		logger.Debug("jsonrpc",
			"peer", event.Peer,
			"direction", string(event.Direction),
			"message", string(event.Message),
		)
	}
}

// LoggingTransport wraps delegate so that every message read or written
// through it is reported to logger. A nil logger returns delegate unchanged.
func LoggingTransport(peer string, delegate mcp.Transport, logger RPCLogger) mcp.Transport {
	if logger == nil {
		return delegate
	}
	return &loggingTransport{peer: peer, delegate: delegate, logger: logger}
}

type loggingTransport struct {
	peer     string
	delegate mcp.Transport
	logger   RPCLogger
}

func (t *loggingTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := t.delegate.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &loggingConnection{peer: t.peer, delegate: conn, logger: t.logger}, nil
}

type loggingConnection struct {
	peer     string
	delegate mcp.Connection
	logger   RPCLogger
	mu       sync.Mutex
}

func (c *loggingConnection) SessionID() string { return c.delegate.SessionID() }

func (c *loggingConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	msg, err := c.delegate.Read(ctx)
	if err == nil {
		c.emit(RPCDirectionReceive, msg)
	}
	return msg, err
}

func (c *loggingConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	if err := c.delegate.Write(ctx, msg); err != nil {
		return err
	}
	c.emit(RPCDirectionSend, msg)
	return nil
}

func (c *loggingConnection) Close() error { return c.delegate.Close() }

func (c *loggingConnection) emit(direction RPCDirection, msg jsonrpc.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	encoded, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		encoded, _ = json.Marshal(err.Error())
	}
	c.logger(RPCLogEvent{Direction: direction, Message: encoded, Peer: c.peer})
}
