package tunnel

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ecopool/league-server/internal/obslog"
	"go.uber.org/zap"
)

// Options configures the ngrok tunnel.
type Options struct {
	BinaryPath string // ngrok binary, defaults to "ngrok" on PATH
	AuthToken  string
	LocalAddr  string // address to expose, e.g. 127.0.0.1:8080
	APIAddr    string // agent API, default 127.0.0.1:4040
	ConfigDir  string // where the agent config is written
}

// Tunnel runs an ngrok agent as a child process and exposes the overlay.
type Tunnel struct {
	opts Options

	mu        sync.Mutex
	cmd       *exec.Cmd
	publicURL string
	cancel    context.CancelFunc
}

func New(opts Options) *Tunnel {
	if strings.TrimSpace(opts.BinaryPath) == "" {
		opts.BinaryPath = "ngrok"
	}
	if strings.TrimSpace(opts.APIAddr) == "" {
		opts.APIAddr = "127.0.0.1:4040"
	}
	if strings.TrimSpace(opts.ConfigDir) == "" {
		opts.ConfigDir = os.TempDir()
	}
	return &Tunnel{opts: opts}
}

// Start launches the agent and blocks until the public URL is known or the
// context expires.
func (t *Tunnel) Start(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.cmd != nil {
		url := t.publicURL
		t.mu.Unlock()
		return url, nil
	}
	t.mu.Unlock()

	cfgPath, err := WriteAgentConfig(t.opts.ConfigDir, t.opts.LocalAddr, t.opts.AuthToken)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, t.opts.BinaryPath,
		"start", "overlay", "--config", cfgPath, "--log", "stdout", "--log-format", "json")
	cmd.Stdout = nil
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return "", fmt.Errorf("start ngrok: %w", err)
	}

	t.mu.Lock()
	t.cmd = cmd
	t.cancel = cancel
	t.mu.Unlock()

	waitCtx, waitCancel := context.WithTimeout(ctx, 30*time.Second)
	defer waitCancel()
	url, err := newAgentClient(t.opts.APIAddr).waitPublicURL(waitCtx)
	if err != nil {
		t.Stop()
		return "", err
	}

	t.mu.Lock()
	t.publicURL = url
	t.mu.Unlock()

	obslog.L().Info("tunnel_up",
		zap.String("public_url", url),
		zap.String("local_addr", t.opts.LocalAddr),
	)
	return url, nil
}

// PublicURL returns the tunnel URL, empty when not running.
func (t *Tunnel) PublicURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publicURL
}

// Active reports whether the agent process is running.
func (t *Tunnel) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cmd != nil
}

// Stop kills the agent process. Safe to call twice.
func (t *Tunnel) Stop() {
	t.mu.Lock()
	cmd := t.cmd
	cancel := t.cancel
	t.cmd = nil
	t.cancel = nil
	t.publicURL = ""
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cmd != nil {
		_ = cmd.Wait()
		obslog.L().Info("tunnel_down")
	}
}
