package version

import (
	"embed"
	"io"
	"runtime/debug"
	"strings"
)

//go:embed version.*
var versions embed.FS

// Version is read from version.txt written by go generate, or from the
// build info when installed with go install
var Version = "unable to get version"

func init() {
	f, err := versions.Open("version.txt")
	if err != nil {
		inf, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		Version = inf.Main.Version
		return
	}
	defer f.Close()

	s, err := io.ReadAll(f)
	if err != nil {
		return
	}
	Version = strings.TrimSpace(string(s))
}
