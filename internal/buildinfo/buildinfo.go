// Package buildinfo carries values stamped at link time, e.g.
//
//	go build -ldflags "-X trajet.transportbi.org/internal/buildinfo.Version=v1.2.0"
package buildinfo

var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// ShortCommit returns the first seven characters of CommitHash, or
// "unknown".
func ShortCommit() string {
	if len(CommitHash) >= 7 {
		return CommitHash[:7]
	}
	return "unknown"
}
