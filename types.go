package main

// GitInfo holds the version-control status of one checkout. A field is left
// at its zero value when the underlying git invocation failed.
type GitInfo struct {
	Commit        string `json:"commit"`
	Branch        string `json:"branch"`
	CommitTime    int64  `json:"commit_time"`
	Mods          bool   `json:"mods"`
	RemoteDiffers bool   `json:"remote_differs"`
}

// Probe is the result of inspecting one resolved folder on one run.
// GitInfo is nil for folders that are not version-controlled checkouts.
type Probe struct {
	Set        string `json:"set"`
	Instance   string `json:"instance"`
	Subdir     string `json:"subdir"`
	FileCount  int    `json:"file_count"`
	Bytes      int64  `json:"bytes"`
	Latest     int64  `json:"latest"`
	LatestFile string `json:"latest_file,omitempty"`
	*GitInfo
}

// Observation is the full set of probes from one run of one instance.
type Observation struct {
	Updated int64   `json:"updated"`
	Subdirs []Probe `json:"subdirs"`
}

// Store maps set name -> instance name -> most recent observation. It is
// fetched from the shared repo at the start of a run and pushed back at the
// end; a run replaces the entry of each instance it probed.
type Store struct {
	Obs map[string]map[string]Observation `json:"obs"`
}
