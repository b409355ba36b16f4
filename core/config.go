package live

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/koscakluka/ema-live/core/protocol"
)

const (
	DefaultHost         = "generativelanguage.googleapis.com"
	DefaultAPIVersion   = "v1alpha"
	DefaultVADSilenceMs = 800
)

var (
	ErrInvalidConfig    = errors.New("invalid session config")
	ErrAlreadyConnected = errors.New("session already active")
	ErrNoPreviousConfig = errors.New("no previous session config")
)

// SessionConfig is the immutable configuration of one connection attempt.
type SessionConfig struct {
	Host         string
	APIVersion   string
	Model        string
	APIKey       string
	VADSilenceMs int
	// SystemInstruction is free-form text; blank lines separate the
	// instruction parts sent to the server.
	SystemInstruction string
	// ResumptionHandle resumes a previous server-side session when set.
	ResumptionHandle string
}

// URL returns the websocket endpoint for the config.
func (c SessionConfig) URL() string {
	u := url.URL{
		Scheme:   "wss",
		Host:     c.Host,
		Path:     "/ws/google.ai.generativelanguage." + c.APIVersion + ".GenerativeService.BidiGenerateContent",
		RawQuery: url.Values{"key": {c.APIKey}}.Encode(),
	}
	return u.String()
}

func (c SessionConfig) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Host) == "" {
		problems = append(problems, "host is empty")
	}
	if strings.TrimSpace(c.APIVersion) == "" {
		problems = append(problems, "api version is empty")
	}
	if strings.TrimSpace(c.Model) == "" {
		problems = append(problems, "model is empty")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		problems = append(problems, "api key is empty")
	}
	if c.VADSilenceMs < 0 {
		problems = append(problems, "vad silence threshold is negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, ", "))
	}
	return nil
}

func (c SessionConfig) setupConfig() protocol.SetupConfig {
	return protocol.SetupConfig{
		Model:             c.Model,
		VADSilenceMs:      c.VADSilenceMs,
		SystemInstruction: c.SystemInstruction,
		ResumptionHandle:  c.ResumptionHandle,
	}
}
