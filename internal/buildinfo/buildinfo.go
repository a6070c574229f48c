package buildinfo

import (
	"github.com/prometheus/common/version"
)

const Graffiti = " _                     _\n| |__   __ _ _ __   __| |___  ___ _ __  ___  ___\n| '_ \\ / _` | '_ \\ / _` / __|/ _ \\ '_ \\/ __|/ _ \\\n| |_) | (_| | | | | (_| \\__ \\  __/ | | \\__ \\  __/\n|_.__/ \\__,_|_| |_|\\__,_|___/\\___|_| |_|___/\\___|\n\n"

var (
	BuildTag string = "v0.1.0"
	Name     string = "bandsense"
	Time     string = ""
)

func init() {
	version.Version = BuildTag
	version.BuildDate = Time
}

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

// Print returns the full version banner in the prometheus format.
func (buildinfo) Print() string {
	return version.Print(Name)
}

var Info buildinfo
