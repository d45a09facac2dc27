package export

import "strings"

type Mode string

const (
	ModeAPI    Mode = "api"
	ModeScript Mode = "script"
)

// ModeConfig is the part of the server configuration that decides the
// export path.
type ModeConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
}

// SelectMode picks the direct API path only when a full OAuth client is
// configured. Otherwise users get the generated script.
func SelectMode(cfg ModeConfig) Mode {
	if strings.TrimSpace(cfg.GoogleClientID) != "" && strings.TrimSpace(cfg.GoogleClientSecret) != "" {
		return ModeAPI
	}
	return ModeScript
}
