package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LocalConfig is the per-user configuration: the preferred shared repo URL
// and the (set, instance) pairs previously confirmed for this machine. Not
// to be confused with the shared settings document, which lives in the
// synced repo.
type LocalConfig struct {
	v     *viper.Viper
	path  string
	dirty bool
}

// loadLocalConfig reads ~/.checkstate/config.json, creating the directory
// if needed. A missing config file is not an error.
func loadLocalConfig() (*LocalConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locating home directory: %w", err)
	}
	dir := filepath.Join(home, ".checkstate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(dir, "config.json")
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &LocalConfig{v: v, path: path}, nil
}

// Repo returns the preferred shared repo URL, if one has been stored.
func (c *LocalConfig) Repo() string {
	return c.v.GetString("repo")
}

// SetRepo records the shared repo URL used by this run.
func (c *LocalConfig) SetRepo(repo string) {
	if c.v.GetString("repo") == repo {
		return
	}
	c.v.Set("repo", repo)
	c.dirty = true
}

// Seen reports whether set/instance was previously confirmed for this
// machine.
func (c *LocalConfig) Seen(set, instance string) bool {
	for _, pair := range c.seen() {
		if pair[0] == set && pair[1] == instance {
			return true
		}
	}
	return false
}

// MarkSeen adds set/instance to the seen list if not already present.
func (c *LocalConfig) MarkSeen(set, instance string) {
	if c.Seen(set, instance) {
		return
	}
	c.v.Set("seen", append(c.seen(), []string{set, instance}))
	c.dirty = true
}

// seen returns the stored seen list. The value is [][]string when set
// during this run and []interface{} when loaded from JSON.
func (c *LocalConfig) seen() [][]string {
	switch raw := c.v.Get("seen").(type) {
	case [][]string:
		return raw
	case []interface{}:
		var pairs [][]string
		for _, item := range raw {
			pair, ok := item.([]interface{})
			if !ok || len(pair) != 2 {
				continue
			}
			pairs = append(pairs, []string{fmt.Sprint(pair[0]), fmt.Sprint(pair[1])})
		}
		return pairs
	}
	return nil
}

// Save writes the config back if anything changed during the run.
func (c *LocalConfig) Save(stderr io.Writer) error {
	if !c.dirty {
		return nil
	}
	fmt.Fprintln(stderr, "Updating local config.")
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}
	c.dirty = false
	return nil
}
