package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const DefaultImage = "python:3.12-alpine"

// Docker runs each program in a fresh container with the program directory
// bind-mounted at /workspace. The container is always force-removed.
type Docker struct {
	Image       string
	CPULimit    float64
	MemoryLimit int64
	// NetworkDisabled runs the container with no network at all.
	NetworkDisabled bool
	// UserID is passed as the container user, e.g. "1000:1000", so files the
	// program writes stay removable by the host.
	UserID string
}

const containerScript = "python /workspace/program.py > /workspace/stdout.txt 2> /workspace/stderr.txt"

func (d *Docker) Run(ctx context.Context, code string, timeout time.Duration) (*Result, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	workDir, err := os.MkdirTemp("", "promptbench-sandbox-*")
	if err != nil {
		return nil, fmt.Errorf("creating sandbox dir: %w", err)
	}
	defer os.RemoveAll(workDir)
	if err := os.WriteFile(filepath.Join(workDir, "program.py"), []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("writing program: %w", err)
	}

	image := d.Image
	if image == "" {
		image = DefaultImage
	}
	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: workDir,
			Target: "/workspace",
		}},
		Init: &initTrue,
	}
	if d.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(d.CPULimit * 1e9)
	}
	if d.MemoryLimit > 0 {
		hostCfg.Memory = d.MemoryLimit
	}
	if d.NetworkDisabled {
		hostCfg.NetworkMode = "none"
	}
	containerCfg := &container.Config{
		Image:      image,
		Cmd:        []string{"sh", "-c", containerScript},
		WorkingDir: "/workspace",
		Labels:     map[string]string{"promptbench": "sandbox"},
		User:       d.UserID,
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	waitResult := cli.ContainerWait(waitCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	errC := waitResult.Error
	for {
		select {
		case err := <-errC:
			if err == nil {
				// stop selecting on a drained channel and wait for the status
				errC = nil
				continue
			}
			cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if waitCtx.Err() == nil {
				return nil, fmt.Errorf("waiting for container: %w", err)
			}
			res := readOutputs(workDir)
			res.ExitCode = TimeoutExitCode
			res.TimedOut = true
			res.Duration = time.Since(start)
			return res, nil
		case status := <-waitResult.Result:
			res := readOutputs(workDir)
			res.ExitCode = int(status.StatusCode)
			res.Duration = time.Since(start)
			return res, nil
		}
	}
}

func readOutputs(workDir string) *Result {
	stdout, _ := os.ReadFile(filepath.Join(workDir, "stdout.txt"))
	stderr, _ := os.ReadFile(filepath.Join(workDir, "stderr.txt"))
	return &Result{Stdout: string(stdout), Stderr: string(stderr)}
}
