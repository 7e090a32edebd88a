package version

// Version information injected at build time
var (
	AppName = "msglist"
	// Version is the application's version
	Version = "dev"
	// GitCommit is the git commit hash the application was built from
	GitCommit = "unknown"
)

// Info returns the version and commit, e.g. "dev (commit: unknown)"
func Info() string {
	return Version + " (commit: " + GitCommit + ")"
}

// UserAgent is sent with every request to the message store
func UserAgent() string {
	return AppName + "/" + Version
}
