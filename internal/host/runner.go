package host

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"instabatch/internal/action"
)

// Durations reports how long an action of kind takes against target.
type Durations interface {
	DurationOf(kind action.Kind, target string) time.Duration
}

// SleepRunner emulates an action by waiting for its duration.
type SleepRunner struct {
	Durations Durations
}

func (r SleepRunner) Run(ctx context.Context, req action.Request) error {
	var d time.Duration
	if r.Durations != nil {
		d = r.Durations.DurationOf(req.Kind, req.Target)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CommandRunner executes the action routine as an executable found in Dir.
// The routine receives its request as flags:
//
//	<routine> --target T --host H --signature S [--logfile P]
type CommandRunner struct {
	Dir     string
	Timeout time.Duration
	Env     []string
}

func (r CommandRunner) Path(routine string) string {
	if r.Dir == "" || filepath.IsAbs(routine) {
		return routine
	}
	return filepath.Join(r.Dir, routine)
}

func (r CommandRunner) Run(ctx context.Context, req action.Request) error {
	if strings.TrimSpace(req.Routine) == "" {
		return fmt.Errorf("empty routine for %s", req.Kind)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := []string{"--target", req.Target, "--host", req.Host, "--signature", req.Signature}
	if req.LogPath != "" {
		args = append(args, "--logfile", req.LogPath)
	}
	cmd := exec.CommandContext(ctx, r.Path(req.Routine), args...)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", req.Routine, err, msg)
		}
		return fmt.Errorf("%s: %w", req.Routine, err)
	}
	return nil
}
