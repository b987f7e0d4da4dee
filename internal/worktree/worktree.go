// Package worktree provides git worktree isolation so a tool call or a
// session can run against its own checkout instead of mutating the caller's
// working tree directly.
package worktree

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/kilnhq/relay/internal/hooks"
)

// ErrNotGitRepo indicates the given path is not inside a git repository.
type ErrNotGitRepo struct{ Path string }

func (e *ErrNotGitRepo) Error() string { return fmt.Sprintf("not a git repository: %s", e.Path) }

// ErrGitNotFound indicates the git binary is not on PATH.
var ErrGitNotFound = fmt.Errorf("git not found on PATH")

// ErrCreateFailed wraps a failure creating a worktree.
type ErrCreateFailed struct{ Message string }

func (e *ErrCreateFailed) Error() string { return fmt.Sprintf("failed to create worktree: %s", e.Message) }

// ErrRemoveFailed wraps a failure removing a worktree.
type ErrRemoveFailed struct{ Message string }

func (e *ErrRemoveFailed) Error() string { return fmt.Sprintf("failed to remove worktree: %s", e.Message) }

// Managed is a git worktree that cleans up via an explicit Cleanup call,
// with a runtime.SetFinalizer safety net standing in for Rust's synchronous
// Drop: if Cleanup was never called, the finalizer best-effort removes the
// worktree (no hooks run) and logs that it had to.
type Managed struct {
	path      string
	source    string
	hooks     *hooks.Runner
	logger    *slog.Logger
	cleanedUp bool
}

// Path returns the worktree's checkout directory.
func (m *Managed) Path() string { return m.path }

// Source returns the source repository's root directory.
func (m *Managed) Source() string { return m.source }

// Cleanup runs WorktreeRemove hooks (best-effort) and then
// `git worktree remove --force`. Safe to call more than once.
func (m *Managed) Cleanup(ctx context.Context) error {
	if m.cleanedUp {
		return nil
	}
	m.cleanedUp = true
	runtime.SetFinalizer(m, nil)

	if m.hooks != nil {
		outcome := m.hooks.RunEvent(ctx, hooks.EventWorktreeRemove, hooks.Input{
			WorktreePath:   m.path,
			WorktreeSource: m.source,
		})
		if outcome.Denied {
			m.logger.Warn("WorktreeRemove hook denied, removing anyway", "reason", outcome.Reason)
		}
	}

	cmd := exec.CommandContext(ctx, "git", "worktree", "remove", "--force", m.path)
	cmd.Dir = m.source
	if out, err := cmd.CombinedOutput(); err != nil {
		return &ErrRemoveFailed{Message: strings.TrimSpace(string(out))}
	}
	return nil
}

func finalizeManaged(m *Managed) {
	if m.cleanedUp {
		return
	}
	cmd := exec.Command("git", "worktree", "remove", "--force", m.path)
	cmd.Dir = m.source
	_ = cmd.Run()
	if m.logger != nil {
		m.logger.Warn("worktree finalizer ran without explicit Cleanup", "path", m.path)
	}
}

// IsGitRepo reports whether path is inside a git repository.
func IsGitRepo(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = path
	return cmd.Run() == nil
}

// RepoRoot returns the top-level directory of the git repository containing path.
func RepoRoot(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = path
	out, err := cmd.Output()
	if err != nil {
		return "", &ErrNotGitRepo{Path: path}
	}
	return strings.TrimSpace(string(out)), nil
}

// Create makes a new git worktree rooted at a temp directory, optionally on
// a named branch (detached HEAD otherwise), running WorktreeCreate hooks
// once the worktree exists. A hook denial rolls back the just-created
// worktree and returns an error.
func Create(ctx context.Context, source, branch string, hookRunner *hooks.Runner, logger *slog.Logger) (*Managed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := exec.CommandContext(ctx, "git", "--version").Run(); err != nil {
		return nil, ErrGitNotFound
	}
	if !IsGitRepo(ctx, source) {
		return nil, &ErrNotGitRepo{Path: source}
	}

	repoRoot, err := RepoRoot(ctx, source)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()[:8]
	worktreePath := filepath.Join(os.TempDir(), "relay-worktree-"+id)

	var cmd *exec.Cmd
	if branch != "" {
		cmd = exec.CommandContext(ctx, "git", "worktree", "add", "-b", branch, worktreePath)
	} else {
		cmd = exec.CommandContext(ctx, "git", "worktree", "add", "--detach", worktreePath)
	}
	cmd.Dir = repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, &ErrCreateFailed{Message: strings.TrimSpace(string(out))}
	}

	managed := &Managed{path: worktreePath, source: repoRoot, hooks: hookRunner, logger: logger}
	runtime.SetFinalizer(managed, finalizeManaged)

	if hookRunner != nil {
		outcome := hookRunner.RunEvent(ctx, hooks.EventWorktreeCreate, hooks.Input{
			WorktreePath:   managed.path,
			WorktreeSource: repoRoot,
		})
		if outcome.Denied {
			_ = managed.Cleanup(ctx)
			return nil, &ErrCreateFailed{Message: "WorktreeCreate hook denied: " + outcome.Reason}
		}
	}

	return managed, nil
}
