package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/mod/semver"

	"github.com/inkops/warelog/internal/logging"
	"github.com/inkops/warelog/internal/scheduler"
	"github.com/inkops/warelog/internal/storage"
)

const (
	defaultMaxConnections = 64
	defaultRequestTimeout = 30 * time.Second

	// maxRequestBytes bounds a single request line. Requests are small
	// control messages; anything bigger is a broken client.
	maxRequestBytes = 1 << 20
)

// ServerConfig carries the daemon server wiring.
type ServerConfig struct {
	SocketPath    string
	WorkspacePath string
	Store         storage.Storage
	Scheduler     *scheduler.Scheduler
	Version       string
	Log           *logging.Logger
}

// Server serves the RPC protocol on a unix socket. One goroutine per
// connection, bounded by a semaphore.
type Server struct {
	socketPath    string
	workspacePath string
	dbPath        string
	version       string
	store         storage.Storage
	sched         *scheduler.Scheduler
	log           *logging.Logger
	metrics       *Metrics

	listener       net.Listener
	connSemaphore  chan struct{}
	maxConns       int
	requestTimeout time.Duration

	activeConns  atomic.Int32
	lastActivity atomic.Int64 // unix nanos
	startTime    time.Time

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	wg           sync.WaitGroup
}

// NewServer builds a server. Connection and timeout limits come from
// WL_DAEMON_MAX_CONNECTIONS and WL_DAEMON_REQUEST_TIMEOUT when set.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Log == nil {
		cfg.Log = logging.Discard()
	}
	maxConns := envInt("WL_DAEMON_MAX_CONNECTIONS", defaultMaxConnections)
	timeout := envDuration("WL_DAEMON_REQUEST_TIMEOUT", defaultRequestTimeout)

	s := &Server{
		socketPath:     cfg.SocketPath,
		workspacePath:  cfg.WorkspacePath,
		dbPath:         cfg.Store.Path(),
		version:        cfg.Version,
		store:          cfg.Store,
		sched:          cfg.Scheduler,
		log:            cfg.Log,
		metrics:        NewMetrics(),
		connSemaphore:  make(chan struct{}, maxConns),
		maxConns:       maxConns,
		requestTimeout: timeout,
		startTime:      time.Now(),
		shutdownCh:     make(chan struct{}),
	}
	s.touch()
	return s
}

// Start binds the socket and begins accepting connections. It returns
// once the listener is ready; the accept loop runs in the background.
func (s *Server) Start() error {
	if err := EnsureSocketDir(s.socketPath); err != nil {
		return err
	}
	// A leftover socket from a crashed daemon blocks the bind. The
	// lockfile already guarantees we are the only daemon, so remove it.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info("rpc server listening",
		"socket", s.socketPath,
		"max_connections", s.maxConns,
		"request_timeout", s.requestTimeout)
	return nil
}

// ShutdownRequested is closed when a client sends the shutdown op.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// LastActivity returns the time of the most recent request.
func (s *Server) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Stop closes the listener, waits for in-flight connections bounded by
// ctx, and removes the socket.
func (s *Server) Stop(ctx context.Context) error {
	if s.listener != nil {
		_ = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("connections still draining at shutdown deadline",
			"active", s.activeConns.Load())
	}

	_ = os.Remove(s.socketPath)
	CleanupSocketDir(s.socketPath)
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Accept fails permanently once the listener is closed.
			return
		}

		select {
		case s.connSemaphore <- struct{}{}:
		default:
			s.log.Warn("connection limit reached, rejecting", "max", s.maxConns)
			writeResponse(conn, Response{Success: false, Error: "daemon busy: connection limit reached"})
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		s.activeConns.Add(1)
		go func(c net.Conn) {
			defer func() {
				s.activeConns.Add(-1)
				<-s.connSemaphore
				s.wg.Done()
				_ = c.Close()
			}()
			s.handleConn(c)
		}(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(s.requestTimeout))

	reader := bufio.NewReaderSize(conn, 64*1024)
	line, err := readLine(reader, maxRequestBytes)
	if err != nil {
		writeResponse(conn, Response{Success: false, Error: fmt.Sprintf("failed to read request: %v", err)})
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		writeResponse(conn, Response{Success: false, Error: fmt.Sprintf("malformed request: %v", err)})
		return
	}

	s.touch()
	start := time.Now()
	resp := s.dispatch(&req)
	s.metrics.Record(req.Operation, time.Since(start), !resp.Success)
	if !resp.Success {
		s.log.Warn("request failed", "op", req.Operation, "request_id", req.RequestID, "error", resp.Error)
	} else {
		s.log.Debug("request served", "op", req.Operation, "request_id", req.RequestID, "took", time.Since(start))
	}
	writeResponse(conn, resp)
}

func (s *Server) dispatch(req *Request) Response {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	// Ping, health and metrics answer regardless of which database the
	// client expects; everything else must be bound to the same file.
	switch req.Operation {
	case OpPing, OpHealth, OpMetrics:
	default:
		if err := s.checkDBBinding(req.ExpectedDB); err != nil {
			return Response{Success: false, Error: err.Error()}
		}
	}
	// Health answers across a skew so clients can discover the mismatch.
	if req.Operation != OpHealth {
		if err := s.checkVersionSkew(req.ClientVersion); err != nil {
			return Response{Success: false, Error: err.Error()}
		}
	}

	switch req.Operation {
	case OpPing:
		return respond(PingResponse{Message: "pong", Version: s.version})
	case OpStatus:
		return s.handleStatus(ctx)
	case OpHealth:
		return respond(s.healthCheck(ctx, req.ClientVersion))
	case OpMetrics:
		return respond(s.metrics.Snapshot())
	case OpRunChecks:
		return s.handleRunChecks(ctx, req.Args)
	case OpShutdown:
		s.log.Info("shutdown requested", "actor", req.Actor, "request_id", req.RequestID)
		s.shutdownOnce.Do(func() { close(s.shutdownCh) })
		return respond(map[string]string{"message": "shutting down"})
	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown operation %q", req.Operation)}
	}
}

func (s *Server) handleStatus(ctx context.Context) Response {
	unread, err := s.store.CountUnreadAlerts(ctx)
	if err != nil {
		s.log.Warn("failed to count unread alerts for status", "error", err)
	}
	return respond(StatusResponse{
		Version:          s.version,
		WorkspacePath:    s.workspacePath,
		DatabasePath:     s.dbPath,
		SocketPath:       s.socketPath,
		PID:              os.Getpid(),
		UptimeSeconds:    time.Since(s.startTime).Seconds(),
		LastActivityTime: s.LastActivity().UTC().Format(time.RFC3339),
		SchedulerRunning: s.sched != nil && s.sched.Running(),
		UnreadAlerts:     unread,
	})
}

func (s *Server) handleRunChecks(ctx context.Context, args json.RawMessage) Response {
	var checkArgs RunChecksArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &checkArgs); err != nil {
			return Response{Success: false, Error: fmt.Sprintf("malformed run_checks args: %v", err)}
		}
	}
	kind := scheduler.CheckKind(checkArgs.Kind)
	if checkArgs.Kind == "" {
		kind = scheduler.KindAll
	}
	if s.sched == nil {
		return Response{Success: false, Error: "scheduler is not configured"}
	}
	report, err := s.sched.TriggerNow(ctx, kind)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return respond(report)
}

func (s *Server) healthCheck(ctx context.Context, clientVersion string) HealthResponse {
	health := HealthResponse{
		Version:       s.version,
		ClientVersion: clientVersion,
		Compatible:    s.checkVersionSkew(clientVersion) == nil,
		Uptime:        time.Since(s.startTime).Seconds(),
		ActiveConns:   s.activeConns.Load(),
		MaxConns:      s.maxConns,
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	health.MemoryAllocMB = mem.Alloc / 1024 / 1024

	dbStart := time.Now()
	err := s.store.UnderlyingDB().PingContext(ctx)
	health.DBResponseTime = float64(time.Since(dbStart).Microseconds()) / 1000
	switch {
	case err != nil:
		health.Status = "unhealthy"
		health.Error = fmt.Sprintf("database unreachable: %v", err)
	case health.DBResponseTime > 1000:
		health.Status = "degraded"
	default:
		health.Status = "healthy"
	}
	return health
}

// checkDBBinding refuses requests from clients bound to a different
// database file. Both sides resolve symlinks so aliases compare equal.
func (s *Server) checkDBBinding(expectedDB string) error {
	if expectedDB == "" {
		return nil
	}
	want, err := filepath.EvalSymlinks(expectedDB)
	if err != nil {
		want = filepath.Clean(expectedDB)
	}
	have, err := filepath.EvalSymlinks(s.dbPath)
	if err != nil {
		have = filepath.Clean(s.dbPath)
	}
	if want != have {
		return fmt.Errorf("daemon is bound to %s, not %s; stop it or use --no-daemon", have, want)
	}
	return nil
}

// checkVersionSkew rejects clients from a different major version. Dev
// builds (non-semver versions) are let through.
func (s *Server) checkVersionSkew(clientVersion string) error {
	if clientVersion == "" {
		return nil
	}
	daemon, client := "v"+s.version, "v"+clientVersion
	if !semver.IsValid(daemon) || !semver.IsValid(client) {
		return nil
	}
	if semver.Major(daemon) != semver.Major(client) {
		return fmt.Errorf("version mismatch: daemon %s, client %s; restart the daemon", s.version, clientVersion)
	}
	return nil
}

func (s *Server) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func respond(data any) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("failed to encode response: %v", err)}
	}
	return Response{Success: true, Data: raw}
}

func writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"success":false,"error":"failed to encode response"}`)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_, _ = conn.Write(append(data, '\n'))
}

func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > limit {
			return nil, fmt.Errorf("request exceeds %d bytes", limit)
		}
		if err == nil {
			return buf, nil
		}
		if err != bufio.ErrBufferFull {
			return nil, err
		}
	}
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(name); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
