package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// infoFile is the shared observation document inside the synced repo.
const infoFile = "checkstate_info.json"

// loadStore reads the observation document from the synced settings
// directory. A missing file is an empty store.
func loadStore(dir string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, infoFile))
	if os.IsNotExist(err) {
		return &Store{Obs: map[string]map[string]Observation{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stored results: %w", err)
	}
	var st Store
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", infoFile, err)
	}
	if st.Obs == nil {
		st.Obs = map[string]map[string]Observation{}
	}
	return &st, nil
}

// Put replaces the stored observation for set/instance.
func (s *Store) Put(set, instance string, obs Observation) {
	if s.Obs[set] == nil {
		s.Obs[set] = map[string]Observation{}
	}
	s.Obs[set][instance] = obs
}

// save rewrites the observation document wholesale. Key order is
// deterministic and indentation minimal, which keeps the file's git history
// diff-friendly.
func (s *Store) save(dir string) error {
	data, err := json.MarshalIndent(s, "", "")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, infoFile), append(data, '\n'), 0o644)
}

// fetchShared clones the shared repo into a fresh temp dir and loads the
// settings and observation documents from it. The caller removes the dir.
func fetchShared(repo string, stderr io.Writer) (dir string, settings *Settings, store *Store, err error) {
	dir, err = os.MkdirTemp("", "checkstate")
	if err != nil {
		return "", nil, nil, err
	}
	fmt.Fprintln(stderr, "[fetching settings from repo]")
	if err := clone(repo, dir); err != nil {
		os.RemoveAll(dir)
		return "", nil, nil, err
	}
	settings, err = loadSettings(dir)
	if err != nil {
		os.RemoveAll(dir)
		return "", nil, nil, err
	}
	store, err = loadStore(dir)
	if err != nil {
		os.RemoveAll(dir)
		return "", nil, nil, err
	}
	return dir, settings, store, nil
}

// pushShared writes the store and pushes it back to the shared repo. A
// failed push is fatal; this tool does not retry or merge concurrent runs.
func pushShared(dir string, store *Store, stderr io.Writer) error {
	if err := store.save(dir); err != nil {
		return err
	}
	fmt.Fprintln(stderr, "[storing results in repo]")
	if err := gitRun(dir, "add", infoFile); err != nil {
		return err
	}
	if err := gitRun(dir, "commit", "--allow-empty", "-m", "updated"); err != nil {
		return err
	}
	return gitRun(dir, "push")
}
