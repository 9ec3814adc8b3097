// Package gateway runs an optional local litellm proxy that the service
// client talks to instead of the provider.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultReadyTimeout = 30 * time.Second

type Gateway struct {
	Port    int
	cmd     *exec.Cmd
	logFile *os.File
}

type StartOpts struct {
	SecretsEnvFile string
	LogDir         string
	// Command is the proxy binary and leading args; the port flag is
	// appended. Empty means litellm.
	Command      []string
	ReadyTimeout time.Duration
	Logger       *log.Logger
}

func FindFreePort() (int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

func (g *Gateway) URL() string {
	return fmt.Sprintf("http://localhost:%d", g.Port)
}

// BaseURL is the OpenAI-compatible API root served by the proxy.
func (g *Gateway) BaseURL() string {
	return g.URL() + "/v1"
}

func Start(ctx context.Context, opts *StartOpts) (*Gateway, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	port, err := FindFreePort()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	logPath := filepath.Join(opts.LogDir, fmt.Sprintf("litellm-%d.log", port))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}

	env, err := ChildEnv(os.Environ(), opts.SecretsEnvFile)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	command := opts.Command
	if len(command) == 0 {
		command = []string{"litellm"}
	}
	args := append(append([]string{}, command[1:]...), "--port", fmt.Sprintf("%d", port))
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = env

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting %s: %w", command[0], err)
	}

	timeout := opts.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if err := WaitForPort(ctx, port, timeout); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		logFile.Close()
		return nil, fmt.Errorf("%s did not start (see %s): %w", command[0], logPath, err)
	}
	logger.Printf("gateway: %s listening on port %d", command[0], port)
	return &Gateway{Port: port, cmd: cmd, logFile: logFile}, nil
}

func (g *Gateway) Stop() error {
	if g.cmd != nil && g.cmd.Process != nil {
		g.cmd.Process.Kill()
		g.cmd.Wait()
	}
	if g.logFile != nil {
		g.logFile.Close()
	}
	return nil
}

// ChildEnv appends the variables from envFile to base. Variables already
// in base win.
func ChildEnv(base []string, envFile string) ([]string, error) {
	env := append([]string{}, base...)
	if envFile == "" {
		return env, nil
	}
	vars, err := godotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("reading secrets env file: %w", err)
	}
	present := map[string]bool{}
	for _, kv := range base {
		if k, _, ok := strings.Cut(kv, "="); ok {
			present[k] = true
		}
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !present[k] {
			env = append(env, k+"="+vars[k])
		}
	}
	return env, nil
}

// WaitForPort polls until something accepts connections on port.
func WaitForPort(ctx context.Context, port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	addr := fmt.Sprintf("localhost:%d", port)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("port %d not ready after %s", port, timeout)
}
