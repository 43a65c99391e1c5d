package app

// Input is a file or directory copied (or linked) into an application's
// run directory before launch.
type Input struct {
	Path string `json:"path"`
	// OutPath is a subdirectory of the run directory to place the input in.
	OutPath string `json:"outpath,omitempty"`
	// Rename replaces the basename at the destination.
	Rename string `json:"rename,omitempty"`
	// Link makes a symlink to the absolute source path instead of a copy.
	Link bool `json:"link,omitempty"`
}

// DestName is the basename the input gets at its destination.
func (in Input) DestName(base string) string {
	if in.Rename != "" {
		return in.Rename
	}
	return base
}
