package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// templateSet is a reserved set name holding a fill-in example; it is
// skipped during all enumeration.
const templateSet = "_TEMPLATE_"

// settingsFile is the shared configuration document inside the synced repo.
const settingsFile = "checkstate_settings.json"

// Settings is the shared configuration document describing project sets,
// their instances, and the shared folder-name lists instances can reference.
type Settings struct {
	Sets  map[string]SetConfig `json:"sets"`
	Lists map[string][]string  `json:"lists"`
}

// SetConfig is one named project set.
type SetConfig struct {
	Instances map[string]InstanceConfig `json:"instances"`
}

// InstanceConfig is one checkout location of a set on one machine.
type InstanceConfig struct {
	Folders []FolderEntry `json:"folders"`
}

// FolderEntry is one tagged entry in an instance's folder list. Exactly one
// field is set:
//
//	{"base": "/home/me/work"}   set the base path for later relative entries
//	{"path": "proj1"}           one path, absolute or relative to the base
//	{"paths": ["p1", "p2"]}     inline group, expanded in place
//	{"list": "name"}            reference to a named list in Settings.Lists
//	{"alias": "other"}          sole entry: use another instance's folders
type FolderEntry struct {
	Base  string
	Path  string
	Paths []string
	List  string
	Alias string
}

func (e *FolderEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("folder entry must have exactly one key, got %d", len(raw))
	}
	for key, val := range raw {
		switch key {
		case "base":
			return json.Unmarshal(val, &e.Base)
		case "path":
			return json.Unmarshal(val, &e.Path)
		case "paths":
			return json.Unmarshal(val, &e.Paths)
		case "list":
			return json.Unmarshal(val, &e.List)
		case "alias":
			return json.Unmarshal(val, &e.Alias)
		default:
			return fmt.Errorf("unknown folder entry kind %q", key)
		}
	}
	return nil
}

// loadSettings reads and expands the settings document from the synced
// settings directory.
func loadSettings(dir string) (*Settings, error) {
	data, err := os.ReadFile(filepath.Join(dir, settingsFile))
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", settingsFile, err)
	}
	if err := s.expand(); err != nil {
		return nil, err
	}
	return &s, nil
}

// expand replaces alias and list entries with their targets' entries, so
// resolveFolders only ever sees base/path/paths entries. Aliases are
// resolved once here, with a visited set guarding against cycles.
func (s *Settings) expand() error {
	for setName, set := range s.Sets {
		if setName == templateSet {
			continue
		}
		for instName := range set.Instances {
			folders, err := s.expandInstance(setName, instName, map[string]bool{})
			if err != nil {
				return err
			}
			inst := set.Instances[instName]
			inst.Folders = folders
			set.Instances[instName] = inst
		}
	}
	return nil
}

func (s *Settings) expandInstance(setName, instName string, visited map[string]bool) ([]FolderEntry, error) {
	if visited[instName] {
		return nil, fmt.Errorf("instance alias cycle in set '%s' at instance '%s'", setName, instName)
	}
	visited[instName] = true
	inst, ok := s.Sets[setName].Instances[instName]
	if !ok {
		return nil, fmt.Errorf("set '%s' has no instance '%s' (alias target)", setName, instName)
	}
	if len(inst.Folders) == 1 && inst.Folders[0].Alias != "" {
		return s.expandInstance(setName, inst.Folders[0].Alias, visited)
	}
	var out []FolderEntry
	for i, entry := range inst.Folders {
		switch {
		case entry.Alias != "":
			return nil, fmt.Errorf("alias must be the only folder entry in '%s/%s' (entry %d)", setName, instName, i)
		case entry.List != "":
			paths, ok := s.Lists[entry.List]
			if !ok {
				return nil, fmt.Errorf("unknown folder list '%s' in '%s/%s'", entry.List, setName, instName)
			}
			out = append(out, FolderEntry{Paths: append([]string(nil), paths...)})
		default:
			out = append(out, entry)
		}
	}
	return out, nil
}

// resolveFolders expands an instance's folder entries into absolute paths,
// in entry order. Absolute entries pass through unchanged; relative entries
// join against the most recent base entry. A relative entry before any base
// is a configuration error. An unknown instance yields an empty list, since
// instances can be registered by convention before having folders declared.
func resolveFolders(s *Settings, setName, instName string) ([]string, error) {
	if setName == templateSet {
		return nil, fmt.Errorf("set name '%s' is reserved", templateSet)
	}
	set, ok := s.Sets[setName]
	if !ok {
		return nil, fmt.Errorf("unknown set '%s'", setName)
	}
	inst, ok := set.Instances[instName]
	if !ok {
		return nil, nil
	}

	var folders []string
	base := ""
	resolve := func(p string, i int) error {
		if filepath.IsAbs(p) {
			folders = append(folders, p)
			return nil
		}
		if base == "" {
			return fmt.Errorf("relative path '%s' before any base path in '%s/%s' (entry %d)", p, setName, instName, i)
		}
		folders = append(folders, filepath.Join(base, p))
		return nil
	}
	for i, entry := range inst.Folders {
		switch {
		case entry.Base != "":
			base = entry.Base
		case entry.Path != "":
			if err := resolve(entry.Path, i); err != nil {
				return nil, err
			}
		case entry.Paths != nil:
			for _, p := range entry.Paths {
				if err := resolve(p, i); err != nil {
					return nil, err
				}
			}
		}
	}
	return folders, nil
}

// setNames returns the set names in sorted order, skipping the template.
func (s *Settings) setNames() []string {
	var names []string
	for name := range s.Sets {
		if name == templateSet {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// instanceNames returns a set's instance names in sorted order.
func (s *Settings) instanceNames(setName string) []string {
	var names []string
	for name := range s.Sets[setName].Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
