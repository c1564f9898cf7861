package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const rowFmt = "%15s %6s %4s %8s %9s %9s %11s %12s\n"

// printHeader prints the table header row.
func printHeader(w io.Writer) {
	fmt.Fprintf(w, rowFmt, "subdir", "rem_ok", "mods", "files", "size", "commit", "commit_time", "latest")
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// printProbe prints one table row. The latest column is marked '*' on the
// per-name newest file modification; the commit column is marked '!' when
// instances disagree on the commit and '*' on the newest commit time.
func printProbe(w io.Writer, p Probe, r *Reconciliation) {
	name := baseName(p.Subdir)

	latest := timeFmt(p.Latest)
	if p.Latest == r.LatestMod[name] {
		latest += "*"
	} else {
		latest += " "
	}

	remOK, mods, commit, commitTime := "", "", "", ""
	if p.GitInfo != nil {
		remOK = yn(!p.RemoteDiffers)
		mods = yn(p.Mods)
		if len(p.Commit) >= 7 {
			commit = p.Commit[:7]
		} else {
			commit = p.Commit
		}
		if r.Mixed(name) {
			commit += "!"
		}
		if p.CommitTime != 0 && p.CommitTime == r.LatestCommit[name] {
			commit += "*"
		}
		commitTime = timeFmt(p.CommitTime)
	}

	fmt.Fprintf(w, rowFmt,
		name,
		remOK,
		mods,
		fmt.Sprintf("%d", p.FileCount),
		humanize.IBytes(uint64(p.Bytes)),
		commit,
		commitTime,
		latest,
	)
}

// printReport renders the cross-instance comparison for one set, with the
// current instance's block last, and the mixed-commit warning if any.
func printReport(w io.Writer, obs map[string]Observation, current string) {
	r := reconcile(obs, current)
	fmt.Fprintln(w)
	printHeader(w)
	for _, instance := range r.Instances {
		o := obs[instance]
		fmt.Fprintf(w, "%s %s\n", instance, timeFmt(o.Updated))
		for _, p := range o.Subdirs {
			printProbe(w, p, r)
		}
	}
	if mixed := r.MixedNames(); len(mixed) > 0 {
		fmt.Fprintf(w, "\nWARNING: mixed commits for: %s\n", strings.Join(mixed, ", "))
	}
}

// printRemedies suggests git commands for the current instance's probes
// that are out of sync, one line per condition per probe, with the header
// printed at most once.
func printRemedies(w io.Writer, probes []Probe) {
	header := "\nPossible remedies\n"
	for _, p := range probes {
		if p.GitInfo == nil {
			continue
		}
		if p.RemoteDiffers {
			fmt.Fprintf(w, "%sgit -C '%s' pull  # or maybe push\n", header, p.Subdir)
			header = ""
		}
		if p.Mods {
			fmt.Fprintf(w, "%sgit -C '%s' commit -a && git -C '%s' push\n", header, p.Subdir, p.Subdir)
			header = ""
		}
	}
}

// doList prints the known sets and instances.
func doList(w io.Writer, settings *Settings) {
	fmt.Fprintf(w, "\nKnown sets / instances\n\n")
	for _, setName := range settings.setNames() {
		fmt.Fprintln(w, setName)
		for _, instName := range settings.instanceNames(setName) {
			fmt.Fprintf(w, "    %s\n", instName)
		}
	}
	fmt.Fprintln(w)
}

// doShowStored renders stored observations without probing. With a set
// argument only that set is shown, otherwise all sets.
func doShowStored(w io.Writer, store *Store, setArg string) error {
	if setArg != "" {
		if _, ok := store.Obs[setArg]; !ok {
			return fmt.Errorf("no stored results for set '%s'", setArg)
		}
	}
	fmt.Fprintf(w, "\nStored results\n")
	for _, setName := range sortedKeys(store.Obs) {
		if setArg != "" && setName != setArg {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", setName)
		printReport(w, store.Obs[setName], "")
	}
	return nil
}

// timeFmt renders an epoch timestamp as mm/dd-HH:MM local time.
func timeFmt(t int64) string {
	if t == 0 {
		return ""
	}
	return time.Unix(t, 0).Format("01/02-15:04")
}
