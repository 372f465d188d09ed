// Package vcs snapshots a save directory into a local git repository.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

// runFunc runs git with args in dir and returns trimmed stdout.
type runFunc func(ctx context.Context, dir string, env []string, args ...string) (string, error)

// Git commits everything under Dir. The repository is created on first use.
type Git struct {
	Dir     string
	Timeout time.Duration
	// Name and Email are used as author and committer when set, so snapshots
	// work on machines without a global git identity.
	Name  string
	Email string

	run runFunc
}

func New(dir string) *Git {
	return &Git{Dir: dir, Timeout: DefaultTimeout, run: execGit}
}

// Snapshot stages all changes and commits them with msg. A clean tree is not
// an error.
func (g *Git) Snapshot(msg string) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout())
	defer cancel()
	return g.SnapshotContext(ctx, msg)
}

func (g *Git) SnapshotContext(ctx context.Context, msg string) error {
	if g.Dir == "" {
		return fmt.Errorf("git snapshot: empty directory")
	}
	if err := g.ensureRepo(ctx); err != nil {
		return err
	}
	if _, err := g.git(ctx, "add", "-A", "."); err != nil {
		return err
	}
	status, err := g.git(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if status == "" {
		return nil
	}
	_, err = g.git(ctx, "commit", "--quiet", "-m", msg)
	return err
}

func (g *Git) ensureRepo(ctx context.Context) error {
	_, err := os.Stat(filepath.Join(g.Dir, ".git"))
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	_, err = g.git(ctx, "init", "--quiet")
	return err
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	run := g.run
	if run == nil {
		run = execGit
	}
	var env []string
	if g.Name != "" {
		env = append(env, "GIT_AUTHOR_NAME="+g.Name, "GIT_COMMITTER_NAME="+g.Name)
	}
	if g.Email != "" {
		env = append(env, "GIT_AUTHOR_EMAIL="+g.Email, "GIT_COMMITTER_EMAIL="+g.Email)
	}
	return run(ctx, g.Dir, env, args...)
}

func (g *Git) timeout() time.Duration {
	if g.Timeout <= 0 {
		return DefaultTimeout
	}
	return g.Timeout
}

func execGit(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("git %s: timed out", args[0])
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
