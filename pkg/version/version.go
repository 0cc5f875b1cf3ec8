// Package version carries build metadata for the biochat binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set via ldflags, e.g. -X biochat/pkg/version.Version=v0.3.0. Builds
// without ldflags fall back to the module and VCS stamps in the binary.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the resolved build metadata.
type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
}

var readBuildInfo = debug.ReadBuildInfo

// Get resolves build metadata, preferring ldflags values over build info.
func Get() Info {
	info := Info{
		Version:   strings.TrimSpace(Version),
		Commit:    strings.TrimSpace(Commit),
		Date:      strings.TrimSpace(Date),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := readBuildInfo(); ok {
		if unset(info.Version, "dev") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if unset(info.Commit, "none") {
					info.Commit = s.Value
				}
			case "vcs.time":
				if unset(info.Date, "unknown") {
					info.Date = s.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

func unset(v, placeholder string) bool {
	return v == "" || v == placeholder
}

// Summary is the one-line form shown in the banner and page footer.
func Summary() string {
	info := Get()
	if info.Commit == "none" {
		return info.Version
	}
	short := info.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	return fmt.Sprintf("%s (%s)", info.Version, short)
}

// Details is the block printed by the version command.
func Details() string {
	info := Get()
	var sb strings.Builder
	fmt.Fprintf(&sb, "biochat version %s\n", info.Version)
	fmt.Fprintf(&sb, "  commit: %s\n", info.Commit)
	fmt.Fprintf(&sb, "  built: %s\n", info.Date)
	fmt.Fprintf(&sb, "  go: %s\n", info.GoVersion)
	fmt.Fprintf(&sb, "  platform: %s\n", info.Platform)
	return sb.String()
}
