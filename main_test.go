package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"4d63.com/testcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGit(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	os.Setenv("HOME", dir)
	testcli.Exec(t, "git config --global user.email 'tests@example.com'")
	testcli.Exec(t, "git config --global user.name 'Tests'")
	testcli.Exec(t, "git config --global init.defaultBranch main")
}

func gitExec(t *testing.T, command string) string {
	_, stdout, _ := testcli.Exec(t, command)
	return strings.TrimSpace(stdout)
}

// setupShared creates a bare shared repo seeded with the given settings
// document and returns its path.
func setupShared(t *testing.T, settings string) string {
	remote := testcli.MkdirTemp(t)
	testcli.Chdir(t, remote)
	testcli.Exec(t, "git init --bare")

	work := testcli.MkdirTemp(t)
	testcli.Exec(t, "git clone "+remote+" "+work+"/shared")
	testcli.Chdir(t, filepath.Join(work, "shared"))
	testcli.WriteFile(t, settingsFile, []byte(settings))
	testcli.Exec(t, "git add .")
	testcli.Exec(t, "git commit -m 'settings'")
	testcli.Exec(t, "git push -u origin main")
	return remote
}

// setupProject creates a bare project remote with one commit and clones it
// to each of the given paths. Returns the commit hash.
func setupProject(t *testing.T, checkouts ...string) (remote, commit string) {
	remote = testcli.MkdirTemp(t)
	testcli.Chdir(t, remote)
	testcli.Exec(t, "git init --bare")

	seed := testcli.MkdirTemp(t)
	testcli.Exec(t, "git clone "+remote+" "+seed+"/seed")
	testcli.Chdir(t, filepath.Join(seed, "seed"))
	testcli.WriteFile(t, "file1", []byte("content"))
	testcli.Exec(t, "git add .")
	testcli.Exec(t, "git commit -m 'Initial commit'")
	testcli.Exec(t, "git push -u origin main")
	commit = gitExec(t, "git rev-parse HEAD")

	for _, path := range checkouts {
		testcli.Exec(t, "git clone "+remote+" "+path)
	}
	return remote, commit
}

// fetchStore clones the shared repo and returns the pushed observation
// store.
func fetchStore(t *testing.T, remote string) *Store {
	dir := testcli.MkdirTemp(t)
	testcli.Exec(t, "git clone "+remote+" "+dir+"/check")
	data, err := os.ReadFile(filepath.Join(dir, "check", infoFile))
	require.NoError(t, err)
	var st Store
	require.NoError(t, json.Unmarshal(data, &st))
	return &st
}

func twoInstanceSettings(dirA, dirB string) string {
	return fmt.Sprintf(`{
		"sets": {
			"_TEMPLATE_": {"instances": {"NAME": {"folders": []}}},
			"demo": {"instances": {
				"alpha": {"folders": [{"base": "%s"}, {"path": "proj1"}]},
				"beta": {"folders": [{"base": "%s"}, {"path": "proj1"}]}
			}}
		}
	}`, dirA, dirB)
}

func TestRunSameCommitNoWarning(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	dirB := testcli.MkdirTemp(t)
	_, commit := setupProject(t, dirA+"/proj1", dirB+"/proj1")
	shared := setupShared(t, twoInstanceSettings(dirA, dirB))

	testcli.Chdir(t, testcli.MkdirTemp(t))

	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "demo/alpha: ")
	assert.Contains(t, stdout, "proj1, ")

	exitCode, stdout, _ = testcli.Main(t, []string{"checkstate", "--repo", shared, "demo", "beta"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "subdir")
	assert.NotContains(t, stdout, "WARNING")
	assert.NotContains(t, stdout, "Possible remedies")
	// Both instances in the report, current one last.
	assert.Greater(t, strings.Index(stdout, "\nbeta "), strings.Index(stdout, "\nalpha "))

	st := fetchStore(t, shared)
	require.Len(t, st.Obs["demo"], 2)
	for _, instance := range []string{"alpha", "beta"} {
		obs := st.Obs["demo"][instance]
		require.Len(t, obs.Subdirs, 1, instance)
		p := obs.Subdirs[0]
		require.NotNil(t, p.GitInfo, instance)
		assert.Equal(t, commit, p.Commit, instance)
		assert.Equal(t, "main", p.Branch, instance)
		assert.False(t, p.Mods, instance)
		assert.False(t, p.RemoteDiffers, instance)
		assert.Equal(t, 1, p.FileCount, instance)
	}
}

func TestRunMixedCommitsWarnsAndSuggestsRemedy(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	dirB := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1", dirB+"/proj1")
	shared := setupShared(t, twoInstanceSettings(dirA, dirB))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, _, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)

	// Advance beta's checkout without pushing: now the commits are mixed
	// and beta diverges from the project remote.
	testcli.Chdir(t, filepath.Join(dirB, "proj1"))
	testcli.WriteFile(t, "file2", []byte("more"))
	testcli.Exec(t, "git add .")
	testcli.Exec(t, "git commit -m 'More work'")

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "demo", "beta"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "WARNING: mixed commits for: proj1")
	assert.Equal(t, 1, strings.Count(stdout, "WARNING"))
	assert.Contains(t, stdout, "Possible remedies")
	assert.Contains(t, stdout, "pull  # or maybe push")
}

func TestRunMissingPathContinues(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1")
	shared := setupShared(t, fmt.Sprintf(`{
		"sets": {"demo": {"instances": {
			"alpha": {"folders": [{"base": "%s"}, {"paths": ["ghost", "proj1"]}]}
		}}}
	}`, dirA))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "No path '"+filepath.Join(dirA, "ghost")+"'")
	assert.Contains(t, stdout, "proj1, ")

	st := fetchStore(t, shared)
	require.Len(t, st.Obs["demo"]["alpha"].Subdirs, 1)
}

func TestRunList(t *testing.T) {
	setupGit(t)

	shared := setupShared(t, twoInstanceSettings("/tmp/a", "/tmp/b"))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "--list"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Equal(t, "\nKnown sets / instances\n\ndemo\n    alpha\n    beta\n\n", stdout)
}

func TestRunShowStored(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1")
	shared := setupShared(t, fmt.Sprintf(`{
		"sets": {"demo": {"instances": {
			"alpha": {"folders": [{"base": "%s"}, {"path": "proj1"}]}
		}}}
	}`, dirA))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, _, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)

	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "--show-stored"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "Stored results")
	assert.Contains(t, stdout, "demo")
	assert.Contains(t, stdout, "alpha ")
	assert.Contains(t, stdout, "proj1")
	// Show-stored must not probe.
	assert.NotContains(t, stdout, "demo/alpha: ")
}

func TestRunNoStore(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1")
	shared := setupShared(t, fmt.Sprintf(`{
		"sets": {"demo": {"instances": {
			"alpha": {"folders": [{"base": "%s"}, {"path": "proj1"}]}
		}}}
	}`, dirA))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "--no-store", "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "[NOT storing results]")

	dir := testcli.MkdirTemp(t)
	testcli.Exec(t, "git clone "+shared+" "+dir+"/check")
	_, err := os.Stat(filepath.Join(dir, "check", infoFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRunGuessesInstanceFromFolder(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	dirB := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1", dirB+"/proj1")
	shared := setupShared(t, twoInstanceSettings(dirA, dirB))

	testcli.Chdir(t, filepath.Join(dirA, "proj1"))
	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "Guessing set / instance 'demo' / 'alpha' from folder")

	// Second run finds the pair in the seen list and guesses silently.
	exitCode, stdout, _ = testcli.Main(t, []string{"checkstate", "--repo", shared}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.NotContains(t, stdout, "Guessing")
	assert.Contains(t, stdout, "demo/alpha: ")
}

func TestRunAmbiguousDetection(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1")
	// Both instances claim the same folder on this machine.
	shared := setupShared(t, twoInstanceSettings(dirA, dirA))

	testcli.Chdir(t, filepath.Join(dirA, "proj1"))
	exitCode, _, stderr := testcli.Main(t, []string{"checkstate", "--repo", shared}, nil, run)
	require.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "path exists in multiple instances")
	assert.Contains(t, stderr, "checkstate --repo "+shared+" demo alpha")
	assert.Contains(t, stderr, "checkstate --repo "+shared+" demo beta")

	// No probe was performed, so nothing was pushed.
	dir := testcli.MkdirTemp(t)
	testcli.Exec(t, "git clone "+shared+" "+dir+"/check")
	_, err := os.Stat(filepath.Join(dir, "check", infoFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRunUnknownSet(t *testing.T) {
	setupGit(t)

	shared := setupShared(t, twoInstanceSettings("/tmp/a", "/tmp/b"))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, _, stderr := testcli.Main(t, []string{"checkstate", "--repo", shared, "nope", "alpha"}, nil, run)
	require.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "unknown set 'nope'")
}

func TestRunTemplateSetRejected(t *testing.T) {
	setupGit(t)

	shared := setupShared(t, twoInstanceSettings("/tmp/a", "/tmp/b"))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, _, stderr := testcli.Main(t, []string{"checkstate", "--repo", shared, "_TEMPLATE_", "NAME"}, nil, run)
	require.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "reserved")
}

func TestRunAllProbesEveryLocalInstance(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	dirB := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1", dirB+"/proj1")
	shared := setupShared(t, fmt.Sprintf(`{
		"sets": {"demo": {"instances": {
			"alpha": {"folders": [{"base": "%s"}, {"path": "proj1"}]},
			"beta": {"folders": [{"base": "%s"}, {"path": "proj1"}]},
			"gamma": {"folders": [{"base": "/nonexistent"}, {"path": "proj1"}]}
		}}}
	}`, dirA, dirB))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "--repo", shared, "--all", "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "demo/alpha: ")
	assert.Contains(t, stdout, "demo/beta: ")
	assert.Contains(t, stdout, "[no paths for demo/gamma on this machine]")

	st := fetchStore(t, shared)
	assert.Len(t, st.Obs["demo"], 2)
	assert.Contains(t, st.Obs["demo"], "alpha")
	assert.Contains(t, st.Obs["demo"], "beta")
}

func TestRunNoRepoConfigured(t *testing.T) {
	setupGit(t)

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, _, stderr := testcli.Main(t, []string{"checkstate"}, nil, run)
	require.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "no shared repo configured")
}

func TestRunRepoRememberedInLocalConfig(t *testing.T) {
	setupGit(t)

	dirA := testcli.MkdirTemp(t)
	setupProject(t, dirA+"/proj1")
	shared := setupShared(t, fmt.Sprintf(`{
		"sets": {"demo": {"instances": {
			"alpha": {"folders": [{"base": "%s"}, {"path": "proj1"}]}
		}}}
	}`, dirA))

	testcli.Chdir(t, testcli.MkdirTemp(t))
	exitCode, _, stderr := testcli.Main(t, []string{"checkstate", "--repo", shared, "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "Updating local config.")

	// The repo is now the default: no --repo needed.
	exitCode, stdout, _ := testcli.Main(t, []string{"checkstate", "demo", "alpha"}, nil, run)
	require.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "demo/alpha: ")
}
