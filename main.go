package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	repo       string
	set        string
	instance   string
	noStore    bool
	list       bool
	showStored bool
	all        bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opt := options{}

	rootCmd := &cobra.Command{
		Use:   "checkstate [set] [instance]",
		Short: "Check the state of a set of related project checkouts",
		Long: "Check the state of a set of related project checkouts (last commit,\n" +
			"last modified file, uncommitted changes, remote divergence) across\n" +
			"machines, storing results in a shared git repo so a run on one machine\n" +
			"informs users on another. With no positional arguments the set and\n" +
			"instance are guessed from the current folder.",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opt.set = args[0]
			}
			if len(args) > 1 {
				opt.instance = args[1]
			}
			return checkState(opt, stdout, stderr)
		},
	}

	rootCmd.Flags().StringVar(&opt.repo, "repo", "", "git repo holding checkstate settings and results (default from local config)")
	rootCmd.Flags().BoolVar(&opt.noStore, "no-store", false, "don't push results back to the repo")
	rootCmd.Flags().BoolVar(&opt.list, "list", false, "list known sets / instances and exit")
	rootCmd.Flags().BoolVar(&opt.showStored, "show-stored", false, "don't re-probe, just show stored results")
	rootCmd.Flags().BoolVar(&opt.all, "all", false, "probe every instance of the set present on this machine")

	rootCmd.SetArgs(args[1:])
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// checkState is the whole run: fetch the shared repo, work out which
// instance this machine is, probe its folders, print the cross-instance
// comparison, and push the updated observations back.
func checkState(opt options, stdout, stderr io.Writer) error {
	local, err := loadLocalConfig()
	if err != nil {
		return err
	}

	repo := opt.repo
	if repo == "" {
		repo = local.Repo()
	}
	if repo == "" {
		return errors.New("no shared repo configured; pass --repo or set \"repo\" in ~/.checkstate/config.json")
	}

	dir, settings, store, err := fetchShared(repo, stderr)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if opt.list {
		doList(stdout, settings)
		return nil
	}
	if opt.showStored {
		return doShowStored(stdout, store, opt.set)
	}

	local.SetRepo(repo)

	set, instance := opt.set, opt.instance
	if instance == "" {
		set, instance, err = detect(settings, local, set, repo, stdout)
		if err != nil {
			return err
		}
	} else {
		if set == templateSet {
			return fmt.Errorf("set name '%s' is reserved", templateSet)
		}
		if _, ok := settings.Sets[set]; !ok {
			return fmt.Errorf("unknown set '%s'", set)
		}
		local.MarkSeen(set, instance)
	}

	g := ShellGit{}
	now := time.Now().Unix()

	instances := []string{instance}
	if opt.all {
		instances = settings.instanceNames(set)
		if _, ok := settings.Sets[set].Instances[instance]; !ok {
			instances = append(instances, instance)
		}
	}

	var current []Probe
	for _, inst := range instances {
		probes, err := probeInstance(g, settings, set, inst, stdout)
		if err != nil {
			return err
		}
		if opt.all && len(probes) == 0 && inst != instance {
			fmt.Fprintf(stdout, "[no paths for %s/%s on this machine]\n", set, inst)
			continue
		}
		store.Put(set, inst, Observation{Updated: now, Subdirs: probes})
		if inst == instance {
			current = probes
		}
	}

	printReport(stdout, store.Obs[set], instance)
	printRemedies(stdout, current)

	if opt.noStore {
		fmt.Fprintln(stdout, "\n[NOT storing results]")
	} else if err := pushShared(dir, store, stderr); err != nil {
		return err
	}

	return local.Save(stderr)
}
