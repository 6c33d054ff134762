// Package version carries the build metadata stamped into the geodir binary.
package version

import (
	"fmt"
	"strings"
	"time"
)

const (
	Unknown            = "unknown"
	DevelopmentVersion = "dev"
)

// Set at link time:
//
//	go build -ldflags="-X github.com/nimburion/geodir/pkg/version.AppVersion=v1.2.3 \
//	  -X github.com/nimburion/geodir/pkg/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	AppVersion = DevelopmentVersion
	GitCommit  = Unknown
	// BuildTime should be RFC3339.
	BuildTime = Unknown
)

// Info is served on the management /version route and printed by the
// version command.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version,omitempty"`
}

// Current returns the metadata of the running binary.
func Current(serviceName string) Info {
	return Info{
		Service:   orDefault(serviceName, Unknown),
		Version:   orDefault(AppVersion, DevelopmentVersion),
		Commit:    orDefault(GitCommit, Unknown),
		BuildTime: orDefault(BuildTime, Unknown),
		GoVersion: goVersion(),
	}
}

// IsRelease reports whether the binary was built with a stamped version.
func (i Info) IsRelease() bool {
	return i.Version != "" && i.Version != DevelopmentVersion
}

func (i Info) ParseBuildTime() (time.Time, bool) {
	if i.BuildTime == "" || i.BuildTime == Unknown {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, i.BuildTime)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Fields returns the metadata as logger key/value pairs.
func (i Info) Fields() []interface{} {
	return []interface{}{
		"service", i.Service,
		"version", i.Version,
		"commit", i.Commit,
		"build_time", i.BuildTime,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Service, i.Version, i.Commit, i.BuildTime)
}

func orDefault(v, fallback string) string {
	if norm := strings.TrimSpace(v); norm != "" {
		return norm
	}
	return fallback
}
