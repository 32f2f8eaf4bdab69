package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/alerts"
)

const (
	// probeTimeout bounds the dial when checking whether a daemon is
	// alive. Local unix sockets connect in microseconds; 200ms is
	// generous.
	probeTimeout = 200 * time.Millisecond

	defaultClientTimeout = 35 * time.Second
)

// Client speaks the RPC protocol to a running daemon. Each request opens
// its own connection; the protocol is one request per connection.
type Client struct {
	socketPath string
	dbPath     string
	version    string
	actor      string
	timeout    time.Duration
}

// ClientOptions configures a client.
type ClientOptions struct {
	// DBPath is sent as ExpectedDB so the daemon can refuse mismatched
	// databases.
	DBPath  string
	Version string
	Actor   string
	Timeout time.Duration
}

// NewClient builds a client for the socket. It does not connect.
func NewClient(socketPath string, opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &Client{
		socketPath: socketPath,
		dbPath:     opts.DBPath,
		version:    opts.Version,
		actor:      opts.Actor,
		timeout:    timeout,
	}
}

// TryConnect probes the socket and returns a client only when a healthy,
// compatible daemon answers. A dead socket file is cleaned up so the
// next daemon start does not trip over it. Returns (nil, nil) when no
// daemon is available.
func TryConnect(socketPath string, opts ClientOptions) (*Client, error) {
	if _, err := os.Stat(socketPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat socket: %w", err)
	}

	conn, err := net.DialTimeout("unix", socketPath, probeTimeout)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT) {
			// Socket file left behind by a dead daemon.
			_ = os.Remove(socketPath)
			return nil, nil
		}
		return nil, nil
	}
	_ = conn.Close()

	client := NewClient(socketPath, opts)
	health, err := client.Health(context.Background())
	if err != nil {
		return nil, nil
	}
	if !health.Compatible {
		return nil, fmt.Errorf("daemon version %s is incompatible with client %s; run: warelog daemon stop", health.Version, opts.Version)
	}
	if health.Status == "unhealthy" {
		return nil, fmt.Errorf("daemon is unhealthy: %s", health.Error)
	}
	return client, nil
}

// Execute sends one request and decodes the response payload into out
// (when out is non-nil).
func (c *Client) Execute(ctx context.Context, operation string, args any, out any) error {
	req := Request{
		Operation:     operation,
		Actor:         c.actor,
		RequestID:     uuid.NewString(),
		ClientVersion: c.version,
		ExpectedDB:    c.dbPath,
	}
	if cwd, err := os.Getwd(); err == nil {
		req.Cwd = cwd
	}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("failed to encode args: %w", err)
		}
		req.Args = raw
	}

	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	line, err := readLine(bufio.NewReaderSize(conn, 64*1024), maxRequestBytes)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("%s", resp.Error)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}
	return nil
}

// Ping checks the daemon responds.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var out PingResponse
	if err := c.Execute(ctx, OpPing, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches daemon status metadata.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.Execute(ctx, OpStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the daemon health check.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.Execute(ctx, OpHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics fetches the daemon request counters.
func (c *Client) Metrics(ctx context.Context) (*Snapshot, error) {
	var out Snapshot
	if err := c.Execute(ctx, OpMetrics, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunChecks asks the daemon to run alert checks of the given kind.
func (c *Client) RunChecks(ctx context.Context, kind string) (*alerts.RunReport, error) {
	var out alerts.RunReport
	if err := c.Execute(ctx, OpRunChecks, RunChecksArgs{Kind: kind}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.Execute(ctx, OpShutdown, nil, nil)
}
