// Package rpc implements the newline-delimited JSON protocol spoken
// between the CLI and the daemon over a unix socket.
package rpc

import (
	"encoding/json"
)

// Operation names understood by the daemon.
const (
	OpPing      = "ping"
	OpStatus    = "status"
	OpHealth    = "health"
	OpMetrics   = "metrics"
	OpRunChecks = "run_checks"
	OpShutdown  = "shutdown"
)

// Request is one RPC request from client to daemon.
type Request struct {
	Operation     string          `json:"operation"`
	Args          json.RawMessage `json:"args,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	Cwd           string          `json:"cwd,omitempty"`
	ClientVersion string          `json:"client_version,omitempty"`
	// ExpectedDB is the absolute database path the client is working
	// against; the daemon refuses requests bound to a different database.
	ExpectedDB string `json:"expected_db,omitempty"`
}

// Response is one RPC response from daemon to client.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RunChecksArgs selects which alert check to run.
type RunChecksArgs struct {
	Kind string `json:"kind,omitempty"` // defaults to "all"
}

// PingResponse answers a ping.
type PingResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// StatusResponse is the daemon status metadata.
type StatusResponse struct {
	Version          string  `json:"version"`
	WorkspacePath    string  `json:"workspace_path"`
	DatabasePath     string  `json:"database_path"`
	SocketPath       string  `json:"socket_path"`
	PID              int     `json:"pid"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	LastActivityTime string  `json:"last_activity_time"`
	SchedulerRunning bool    `json:"scheduler_running"`
	UnreadAlerts     int     `json:"unread_alerts"`
}

// HealthResponse is the health-check result.
type HealthResponse struct {
	Status         string  `json:"status"` // "healthy", "degraded", "unhealthy"
	Version        string  `json:"version"`
	ClientVersion  string  `json:"client_version,omitempty"`
	Compatible     bool    `json:"compatible"`
	Uptime         float64 `json:"uptime_seconds"`
	DBResponseTime float64 `json:"db_response_ms"`
	ActiveConns    int32   `json:"active_connections"`
	MaxConns       int     `json:"max_connections"`
	MemoryAllocMB  uint64  `json:"memory_alloc_mb"`
	Error          string  `json:"error,omitempty"`
}
