package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// probe inspects one resolved folder. The returned bool is false when the
// path does not exist on this machine, which is not an error. A path that
// exists but is not a directory is an error, since that means the
// configuration is wrong rather than the checkout missing.
//
// The .git directory is excluded from the file count, byte total, and
// latest-modification time alike, so a mere commit or checkout doesn't
// falsely bump "latest".
func probe(g Git, set, instance, dir string) (Probe, bool, error) {
	fi, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return Probe{}, false, nil
	}
	if err != nil {
		return Probe{}, false, err
	}
	if !fi.IsDir() {
		return Probe{}, false, fmt.Errorf("path '%s' is not a directory", dir)
	}

	p := Probe{Set: set, Instance: instance, Subdir: filepath.ToSlash(dir)}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		p.FileCount++
		p.Bytes += info.Size()
		if mt := info.ModTime().Unix(); mt > p.Latest {
			p.Latest = mt
			p.LatestFile = filepath.ToSlash(path)
		}
		return nil
	})
	if err != nil {
		return Probe{}, false, err
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		p.GitInfo = gitStatus(g, dir)
	}
	return p, true, nil
}

// gitStatus collects the version-control fields for a checkout. A failing
// git invocation leaves its field at the zero value rather than aborting
// the run.
func gitStatus(g Git, dir string) *GitInfo {
	info := &GitInfo{}
	if commit, err := g.HeadCommit(dir); err == nil {
		info.Commit = commit
	}
	if branch, err := g.CurrentBranch(dir); err == nil {
		info.Branch = branch
	}
	if info.Commit != "" {
		if t, err := g.CommitTime(dir, info.Commit); err == nil {
			info.CommitTime = t
		}
	}
	if mods, err := g.HasLocalChanges(dir); err == nil {
		info.Mods = mods
	}
	if refs, err := g.RemoteRefs(dir); err == nil && info.Branch != "" {
		if hash, ok := refs["refs/heads/"+info.Branch]; ok {
			info.RemoteDiffers = hash != info.Commit
		}
	}
	return info
}

// probeInstance probes every resolved folder of an instance, reporting
// missing paths without aborting.
func probeInstance(g Git, settings *Settings, set, instance string, stdout io.Writer) ([]Probe, error) {
	folders, err := resolveFolders(settings, set, instance)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(stdout, "\n%s/%s: ", set, instance)
	var probes []Probe
	for _, dir := range folders {
		p, ok, err := probe(g, set, instance, dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			fmt.Fprintf(stdout, "\nNo path '%s'\n", dir)
			continue
		}
		fmt.Fprintf(stdout, "%s, ", baseName(p.Subdir))
		probes = append(probes, p)
	}
	fmt.Fprintf(stdout, "\n")
	return probes, nil
}
