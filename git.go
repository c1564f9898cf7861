package main

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Git is the narrow slice of git needed to status a checkout. Kept as an
// interface so probing and reconciliation are testable without a git binary.
type Git interface {
	HeadCommit(dir string) (string, error)
	CurrentBranch(dir string) (string, error)
	CommitTime(dir, commit string) (int64, error)
	HasLocalChanges(dir string) (bool, error)
	RemoteRefs(dir string) (map[string]string, error)
}

// ShellGit implements Git by shelling out to the git command.
type ShellGit struct{}

// git runs a git command in the specified directory and returns stdout
func (ShellGit) git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

// HeadCommit returns the current HEAD commit SHA
func (g ShellGit) HeadCommit(dir string) (string, error) {
	return g.git(dir, "rev-parse", "HEAD")
}

// CurrentBranch returns the current branch name, or "HEAD" if detached
func (g ShellGit) CurrentBranch(dir string) (string, error) {
	return g.git(dir, "rev-parse", "--abbrev-ref", "HEAD")
}

// CommitTime returns the unix commit time of the given commit.
func (g ShellGit) CommitTime(dir, commit string) (int64, error) {
	out, err := g.git(dir, "show", "-s", "--format=%ct", commit)
	if err != nil {
		return 0, err
	}
	t, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected commit time %q: %w", out, err)
	}
	return t, nil
}

// HasLocalChanges checks if the working tree differs from HEAD
func (g ShellGit) HasLocalChanges(dir string) (bool, error) {
	out, err := g.git(dir, "diff-index", "HEAD", "--")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// RemoteRefs lists all remote refs as ref name -> commit hash.
func (g ShellGit) RemoteRefs(dir string) (map[string]string, error) {
	out, err := g.git(dir, "ls-remote")
	if err != nil {
		return nil, err
	}
	refs := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			refs[fields[1]] = fields[0]
		}
	}
	return refs, nil
}

// clone clones a repository
func clone(url, path string) error {
	cmd := exec.Command("git", "clone", url, path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s failed: %w: %s", url, err, out)
	}
	return nil
}

// gitRun runs a git command in dir, folding its output into the error on
// failure.
func gitRun(dir string, args ...string) error {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, out)
	}
	return nil
}
