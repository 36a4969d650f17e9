// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/komida-linebot-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/komida-linebot-go/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/komida-linebot-go/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Release returns the release name reported to error tracking,
// e.g. "komida-linebot@v1.2.0". Falls back to the short commit, then "dev".
func Release() string {
	switch {
	case Version != "":
		return "komida-linebot@" + Version
	case len(Commit) >= 7:
		return "komida-linebot@" + Commit[:7]
	case Commit != "":
		return "komida-linebot@" + Commit
	default:
		return "komida-linebot@dev"
	}
}
