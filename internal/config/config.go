package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinzhu/copier"
	live "github.com/koscakluka/ema-live/core"
)

const (
	DefaultModel        = "gemini-2.0-flash-live-001"
	DefaultLogLevel     = "info"
	DefaultAudioBackend = AudioBackendMiniaudio
)

const (
	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"
	// AudioBackendNone runs the session without capture or playback.
	AudioBackendNone = "none"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the on-disk and environment configuration of the CLI.
type Config struct {
	Host              string `yaml:"host,omitempty" jsonschema:"description=Live API host,default=generativelanguage.googleapis.com"`
	APIVersion        string `yaml:"api_version,omitempty" jsonschema:"description=Live API version,default=v1alpha"`
	Model             string `yaml:"model,omitempty" jsonschema:"description=Model name with or without the models/ prefix"`
	APIKey            string `yaml:"api_key,omitempty" jsonschema:"description=API key; GEMINI_API_KEY takes precedence"`
	VADSilenceMs      int    `yaml:"vad_silence_ms,omitempty" jsonschema:"minimum=0,default=800,description=Silence in milliseconds that ends a user turn"`
	SystemInstruction string `yaml:"system_instruction,omitempty" jsonschema:"description=Instruction text; blank lines separate parts"`
	ResumptionHandle  string `yaml:"resumption_handle,omitempty" jsonschema:"description=Handle of a previous session to resume"`
	LogLevel          string `yaml:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	AudioBackend      string `yaml:"audio_backend,omitempty" jsonschema:"enum=miniaudio,enum=portaudio,enum=none"`
}

func Default() Config {
	return Config{
		Host:         live.DefaultHost,
		APIVersion:   live.DefaultAPIVersion,
		Model:        DefaultModel,
		VADSilenceMs: live.DefaultVADSilenceMs,
		LogLevel:     DefaultLogLevel,
		AudioBackend: DefaultAudioBackend,
	}
}

func (c Config) Validate() error {
	var problems []string
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.AudioBackend {
	case AudioBackendMiniaudio, AudioBackendPortaudio, AudioBackendNone:
	default:
		problems = append(problems, fmt.Sprintf("unknown audio backend %q", c.AudioBackend))
	}
	if session, err := c.SessionConfig(); err != nil {
		problems = append(problems, err.Error())
	} else if err := session.Validate(); err != nil {
		problems = append(problems, strings.TrimPrefix(err.Error(), live.ErrInvalidConfig.Error()+": "))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// SessionConfig maps the configuration onto the fields the session uses.
func (c Config) SessionConfig() (live.SessionConfig, error) {
	var session live.SessionConfig
	if err := copier.Copy(&session, &c); err != nil {
		return live.SessionConfig{}, fmt.Errorf("map session config: %w", err)
	}
	return session, nil
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return level, nil
}
