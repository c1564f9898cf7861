package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// detect guesses set/instance from the working directory when the instance
// argument was omitted. Matching pairs already in the local seen list win
// immediately; a single new match is announced and remembered; multiple new
// matches are reported with the exact commands to disambiguate.
func detect(settings *Settings, local *LocalConfig, setArg, repo string, stdout io.Writer) (string, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	if real, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = real
	}

	var choices [][2]string
	for _, setName := range settings.setNames() {
		if setArg != "" && setName != setArg {
			continue
		}
		for _, instName := range settings.instanceNames(setName) {
			folders, err := resolveFolders(settings, setName, instName)
			if err != nil {
				return "", "", err
			}
			for _, dir := range folders {
				real, err := filepath.EvalSymlinks(dir)
				if err != nil {
					real = dir
				}
				if real != cwd {
					continue
				}
				if local.Seen(setName, instName) {
					return setName, instName, nil
				}
				choices = append(choices, [2]string{setName, instName})
				break
			}
		}
	}

	switch len(choices) {
	case 0:
		return "", "", errors.New("can't guess set / instance from current folder")
	case 1:
		set, instance := choices[0][0], choices[0][1]
		fmt.Fprintf(stdout, "\nGuessing set / instance '%s' / '%s' from folder\n", set, instance)
		local.MarkSeen(set, instance)
		return set, instance, nil
	default:
		var b strings.Builder
		b.WriteString("path exists in multiple instances; run one of the following to choose for this machine:\n")
		for _, choice := range choices {
			fmt.Fprintf(&b, "  checkstate --repo %s %s %s\n", repo, choice[0], choice[1])
		}
		return "", "", errors.New(strings.TrimRight(b.String(), "\n"))
	}
}
