// Package version holds build metadata for smokeprobe, set at link time:
//
//	go build -ldflags "-X github.com/hazz-dev/smokeprobe/internal/version.Version=v1.2.0"
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
