package main

import (
	"sort"
	"strings"
)

// Reconciliation cross-references the latest observation from every
// instance of one set. Subdirectories are keyed by base name, since their
// absolute paths differ across machines.
type Reconciliation struct {
	Instances    []string                   // report order, current instance last
	Commits      map[string]map[string]bool // name -> distinct commit hashes
	LatestMod    map[string]int64           // name -> newest file modification
	LatestCommit map[string]int64           // name -> newest commit time
}

// reconcile computes per-subdirectory consensus across instances. The
// current instance sorts last so the freshly measured values sit at the
// bottom of the report for easy comparison; all other instances appear in
// sorted order.
func reconcile(obs map[string]Observation, current string) *Reconciliation {
	r := &Reconciliation{
		Commits:      map[string]map[string]bool{},
		LatestMod:    map[string]int64{},
		LatestCommit: map[string]int64{},
	}

	for name := range obs {
		if name != current {
			r.Instances = append(r.Instances, name)
		}
	}
	sort.Strings(r.Instances)
	if _, ok := obs[current]; ok {
		r.Instances = append(r.Instances, current)
	}

	for _, instance := range r.Instances {
		for _, p := range obs[instance].Subdirs {
			name := baseName(p.Subdir)
			if p.Latest > r.LatestMod[name] {
				r.LatestMod[name] = p.Latest
			}
			if p.GitInfo == nil || p.Commit == "" {
				continue
			}
			if r.Commits[name] == nil {
				r.Commits[name] = map[string]bool{}
			}
			r.Commits[name][p.Commit] = true
			if p.CommitTime > r.LatestCommit[name] {
				r.LatestCommit[name] = p.CommitTime
			}
		}
	}
	return r
}

// Mixed reports whether a subdirectory name was observed at more than one
// distinct commit across instances.
func (r *Reconciliation) Mixed(name string) bool {
	return len(r.Commits[name]) > 1
}

// MixedNames returns the sorted subdirectory names with mixed commits, each
// exactly once.
func (r *Reconciliation) MixedNames() []string {
	var names []string
	for name, commits := range r.Commits {
		if len(commits) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// baseName is the final path segment of a stored subdir path. Stored paths
// are slash-normalized at write time, but observations written on Windows
// by older versions may still carry backslashes.
func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
