package rpc

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxUnixSocketPath is the portable limit for sun_path. Linux allows 108
// bytes but macOS caps it at 104 including the trailing NUL.
const MaxUnixSocketPath = 103

// SocketPath returns the unix socket path for the workspace. The socket
// normally lives at <workspace>/.warelog/warelog.sock; when that exceeds
// the sun_path limit it falls back to a short per-workspace directory
// under /tmp keyed by a hash of the workspace path.
func SocketPath(workspacePath string) string {
	path := filepath.Join(workspacePath, ".warelog", "warelog.sock")
	if len(path) <= MaxUnixSocketPath {
		return path
	}
	return ShortSocketPath(workspacePath)
}

// ShortSocketPath returns the /tmp fallback socket path for a workspace.
func ShortSocketPath(workspacePath string) string {
	sum := sha256.Sum256([]byte(workspacePath))
	return filepath.Join(os.TempDir(), fmt.Sprintf("warelog-%x", sum[:4]), "wl.sock")
}

// EnsureSocketDir creates the directory holding the socket. The fallback
// directory under /tmp is created 0700 since it is outside the workspace.
func EnsureSocketDir(socketPath string) error {
	dir := filepath.Dir(socketPath)
	mode := os.FileMode(0o755)
	if strings.HasPrefix(dir, os.TempDir()) {
		mode = 0o700
	}
	if err := os.MkdirAll(dir, mode); err != nil {
		return fmt.Errorf("failed to create socket directory %s: %w", dir, err)
	}
	return nil
}

// CleanupSocketDir removes the fallback socket directory under /tmp.
// Workspace-local socket directories are left alone.
func CleanupSocketDir(socketPath string) {
	dir := filepath.Dir(socketPath)
	if strings.HasPrefix(dir, os.TempDir()) && strings.Contains(filepath.Base(dir), "warelog-") {
		_ = os.RemoveAll(dir)
	}
}
