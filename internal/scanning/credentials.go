package scanning

import (
	"os"
	"strings"
)

// Well-known environment variables consulted when no credential flag is set
const (
	MindeeKeyEnv = "MINDEE_API_KEY"
	VisionKeyEnv = "GOOGLE_VISION_API_KEY"
	GeminiKeyEnv = "GEMINI_API_KEY"
)

// Credential returns the credential at call time
type Credential func() string

// StaticCredential always returns value
func StaticCredential(value string) Credential {
	return func() string { return strings.TrimSpace(value) }
}

// EnvCredential returns flagValue when set, otherwise the current value of envVar
func EnvCredential(flagValue, envVar string) Credential {
	return func() string {
		if v := strings.TrimSpace(flagValue); v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(envVar))
	}
}

func (c Credential) value() string {
	if c == nil {
		return ""
	}
	return c()
}
