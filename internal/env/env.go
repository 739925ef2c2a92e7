package env

// Set at build time through -ldflags "-X github.com/ostafen/gifkit/internal/env.Version=...".
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

const AppName = "gifkit"
