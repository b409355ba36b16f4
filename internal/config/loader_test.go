package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koscakluka/ema-live/internal/config"
	"github.com/matryer/is"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

func TestLoaderDefaults(t *testing.T) {
	is := is.New(t)

	cfg, err := config.Loader{Lookup: mapLookup(map[string]string{"GEMINI_API_KEY": "key"})}.Load("")
	is.NoErr(err)
	is.Equal(cfg.Host, "generativelanguage.googleapis.com")
	is.Equal(cfg.APIVersion, "v1alpha")
	is.Equal(cfg.Model, config.DefaultModel)
	is.Equal(cfg.VADSilenceMs, 800)
	is.Equal(cfg.LogLevel, "info")
	is.Equal(cfg.AudioBackend, config.AudioBackendMiniaudio)
	is.Equal(cfg.ResumptionHandle, "")
}

func TestLoaderRequiresAPIKey(t *testing.T) {
	is := is.New(t)

	_, err := config.Loader{Lookup: mapLookup(nil)}.Load("")
	is.True(errors.Is(err, config.ErrInvalid))
	is.True(strings.Contains(err.Error(), "api key"))
}

func TestLoaderFileThenEnvironment(t *testing.T) {
	is := is.New(t)

	file := []byte(`
model: gemini-live-test
api_key: from-file
vad_silence_ms: 500
system_instruction: |
  Be brief.

  Answer in Croatian.
log_level: debug
`)
	loader := config.Loader{
		Lookup: mapLookup(map[string]string{
			"GEMINI_API_KEY":          "from-env",
			"EMA_LIVE_VAD_SILENCE_MS": "1200",
			"EMA_LIVE_AUDIO_BACKEND":  "none",
			"EMA_LIVE_HOST":           "   ",
		}),
		ReadFile: func(path string) ([]byte, error) {
			is.Equal(path, "live.yaml")
			return file, nil
		},
	}

	cfg, err := loader.Load("live.yaml")
	is.NoErr(err)
	is.Equal(cfg.Model, "gemini-live-test")
	is.Equal(cfg.APIKey, "from-env")
	is.Equal(cfg.VADSilenceMs, 1200)
	is.Equal(cfg.AudioBackend, config.AudioBackendNone)
	is.Equal(cfg.Host, "generativelanguage.googleapis.com") // blank env values are ignored
	is.Equal(cfg.LogLevel, "debug")
	is.True(strings.Contains(cfg.SystemInstruction, "\n\nAnswer in Croatian."))
}

func TestLoaderRejectsUnknownFileKeys(t *testing.T) {
	is := is.New(t)

	loader := config.Loader{
		Lookup:   mapLookup(map[string]string{"GEMINI_API_KEY": "key"}),
		ReadFile: func(string) ([]byte, error) { return []byte("modle: typo\n"), nil },
	}

	_, err := loader.Load("live.yaml")
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "modle"))
}

func TestLoaderReportsMissingFile(t *testing.T) {
	is := is.New(t)

	loader := config.Loader{
		Lookup:   mapLookup(nil),
		ReadFile: func(string) ([]byte, error) { return nil, fs.ErrNotExist },
	}

	_, err := loader.Load("missing.yaml")
	is.True(errors.Is(err, fs.ErrNotExist))
}

func TestLoaderRejectsBadNumbersAndLevels(t *testing.T) {
	is := is.New(t)

	_, err := config.Loader{Lookup: mapLookup(map[string]string{
		"GEMINI_API_KEY":          "key",
		"EMA_LIVE_VAD_SILENCE_MS": "soon",
	})}.Load("")
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "EMA_LIVE_VAD_SILENCE_MS"))

	_, err = config.Loader{Lookup: mapLookup(map[string]string{
		"GEMINI_API_KEY":     "key",
		"EMA_LIVE_LOG_LEVEL": "loud",
	})}.Load("")
	is.True(errors.Is(err, config.ErrInvalid))
}

func TestSessionConfigMapping(t *testing.T) {
	is := is.New(t)

	cfg := config.Default()
	cfg.APIKey = "key"
	cfg.SystemInstruction = "Be brief."
	cfg.ResumptionHandle = "handle-1"

	session, err := cfg.SessionConfig()
	is.NoErr(err)
	is.Equal(session.Host, cfg.Host)
	is.Equal(session.APIVersion, cfg.APIVersion)
	is.Equal(session.Model, cfg.Model)
	is.Equal(session.APIKey, "key")
	is.Equal(session.VADSilenceMs, 800)
	is.Equal(session.SystemInstruction, "Be brief.")
	is.Equal(session.ResumptionHandle, "handle-1")
	is.NoErr(session.Validate())
}

func TestSaveResumptionHandleKeepsFileKeys(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "live.yaml")
	original := "# personal settings\napi_key: from-file\nmodel: custom-model\n"
	is.NoErr(os.WriteFile(path, []byte(original), 0o600))

	env := mapLookup(map[string]string{"EMA_LIVE_LOG_LEVEL": "debug"})
	cfg, err := config.Loader{Lookup: env}.Load(path)
	is.NoErr(err)
	is.Equal(cfg.APIKey, "from-file")

	is.NoErr(config.SaveResumptionHandle(path, "h1"))

	raw, err := os.ReadFile(path)
	is.NoErr(err)
	saved := string(raw)
	is.True(strings.Contains(saved, "# personal settings"))
	is.True(strings.Contains(saved, "api_key: from-file"))
	is.True(!strings.Contains(saved, "log_level"))
	is.True(!strings.Contains(saved, "host"))

	reloaded, err := config.Loader{Lookup: mapLookup(nil)}.Load(path)
	is.NoErr(err)
	is.Equal(reloaded.APIKey, "from-file")
	is.Equal(reloaded.Model, "custom-model")
	is.Equal(reloaded.ResumptionHandle, "h1")

	is.NoErr(config.SaveResumptionHandle(path, "h2"))
	reloaded, err = config.Loader{Lookup: mapLookup(nil)}.Load(path)
	is.NoErr(err)
	is.Equal(reloaded.ResumptionHandle, "h2")
	raw, err = os.ReadFile(path)
	is.NoErr(err)
	is.Equal(strings.Count(string(raw), "resumption_handle"), 1)
}

func TestSaveResumptionHandleCreatesFile(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "live.yaml")
	is.NoErr(config.SaveResumptionHandle(path, "h1"))

	loaded, err := config.Loader{Lookup: mapLookup(map[string]string{"GEMINI_API_KEY": "key"})}.Load(path)
	is.NoErr(err)
	is.Equal(loaded.ResumptionHandle, "h1")
}

func TestSaveResumptionHandleRejectsNonMapping(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "live.yaml")
	is.NoErr(os.WriteFile(path, []byte("- a\n- b\n"), 0o600))
	is.True(config.SaveResumptionHandle(path, "h1") != nil)
}

func TestSchemaDescribesFileKeys(t *testing.T) {
	is := is.New(t)

	raw, err := config.Schema()
	is.NoErr(err)
	for _, key := range []string{`"vad_silence_ms"`, `"system_instruction"`, `"audio_backend"`, `"miniaudio"`} {
		is.True(strings.Contains(string(raw), key))
	}
	is.True(!strings.Contains(string(raw), `"VADSilenceMs"`))
}
