package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}
	run("add", "README.md")
	run("commit", "-m", "initial")
	return dir
}

func TestIsGitRepoTrueForRepo(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	if !IsGitRepo(context.Background(), dir) {
		t.Fatal("expected IsGitRepo to be true")
	}
}

func TestIsGitRepoFalseForTempDir(t *testing.T) {
	requireGit(t)
	if IsGitRepo(context.Background(), t.TempDir()) {
		t.Fatal("expected IsGitRepo to be false")
	}
}

func TestCreateAndCleanupWorktree(t *testing.T) {
	requireGit(t)
	repo := initRepo(t)
	wt, err := Create(context.Background(), repo, "", nil, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := os.Stat(wt.Path()); err != nil {
		t.Fatalf("expected worktree to exist: %v", err)
	}
	if err := wt.Cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(wt.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected worktree to be removed, stat err=%v", err)
	}
}

func TestCreateWorktreeNonGitDirFails(t *testing.T) {
	requireGit(t)
	_, err := Create(context.Background(), t.TempDir(), "", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*ErrNotGitRepo); !ok {
		t.Fatalf("expected ErrNotGitRepo, got %T: %v", err, err)
	}
}

func TestCreateWorktreeWithBranch(t *testing.T) {
	requireGit(t)
	repo := initRepo(t)
	wt, err := Create(context.Background(), repo, "test-branch", nil, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer wt.Cleanup(context.Background())

	cmd := exec.Command("git", "branch", "--list", "test-branch")
	cmd.Dir = repo
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git branch: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected branch to exist")
	}
}

func TestErrorMessages(t *testing.T) {
	if (&ErrNotGitRepo{Path: "/tmp"}).Error() != "not a git repository: /tmp" {
		t.Fatal("unexpected message")
	}
	if ErrGitNotFound.Error() != "git not found on PATH" {
		t.Fatal("unexpected message")
	}
	if (&ErrCreateFailed{Message: "oops"}).Error() != "failed to create worktree: oops" {
		t.Fatal("unexpected message")
	}
	if (&ErrRemoveFailed{Message: "nope"}).Error() != "failed to remove worktree: nope" {
		t.Fatal("unexpected message")
	}
}
