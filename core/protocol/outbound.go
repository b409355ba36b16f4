package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	AudioMimeType  = "audio/pcm;rate=16000"
	ModalityAudio  = "AUDIO"
	modelPrefix    = "models/"
	handshakeToken = `"setupComplete"`
)

var paragraphBreak = regexp.MustCompile("\n\n+")

// SetupConfig holds everything the setup frame carries.
type SetupConfig struct {
	Model             string
	VADSilenceMs      int
	SystemInstruction string
	ResumptionHandle  string
}

type setupMessage struct {
	Setup setup `json:"setup"`
}

type setup struct {
	Model                    string                    `json:"model"`
	GenerationConfig         generationConfig          `json:"generationConfig"`
	SystemInstruction        systemInstruction         `json:"systemInstruction"`
	InputAudioTranscription  struct{}                  `json:"inputAudioTranscription"`
	OutputAudioTranscription struct{}                  `json:"outputAudioTranscription"`
	ContextWindowCompression contextWindowCompression  `json:"contextWindowCompression"`
	RealtimeInputConfig      realtimeInputConfig       `json:"realtimeInputConfig"`
	SessionResumption        *sessionResumptionRequest `json:"sessionResumption,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type systemInstruction struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type contextWindowCompression struct {
	SlidingWindow struct{} `json:"slidingWindow"`
}

type realtimeInputConfig struct {
	AutomaticActivityDetection automaticActivityDetection `json:"automaticActivityDetection"`
}

type automaticActivityDetection struct {
	SilenceDurationMs int `json:"silenceDurationMs"`
}

type sessionResumptionRequest struct {
	Handle string `json:"handle"`
}

type audioMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio audioBlob `json:"audio"`
}

type audioBlob struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// EncodeSetup builds the handshake frame. The resumption field is omitted
// when no handle is set.
func EncodeSetup(config SetupConfig) ([]byte, error) {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		return nil, fmt.Errorf("model must not be empty")
	}
	if !strings.HasPrefix(model, modelPrefix) {
		model = modelPrefix + model
	}

	parts := []textPart{}
	for _, part := range SplitInstruction(config.SystemInstruction) {
		parts = append(parts, textPart{Text: part})
	}

	msg := setupMessage{Setup: setup{
		Model:             model,
		GenerationConfig:  generationConfig{ResponseModalities: []string{ModalityAudio}},
		SystemInstruction: systemInstruction{Parts: parts},
		RealtimeInputConfig: realtimeInputConfig{
			AutomaticActivityDetection: automaticActivityDetection{SilenceDurationMs: config.VADSilenceMs},
		},
	}}
	if config.ResumptionHandle != "" {
		msg.Setup.SessionResumption = &sessionResumptionRequest{Handle: config.ResumptionHandle}
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal setup message: %w", err)
	}
	return frame, nil
}

// SplitInstruction splits instruction text into trimmed paragraph parts.
// Blank parts are dropped.
func SplitInstruction(instruction string) []string {
	var parts []string
	for _, part := range paragraphBreak.Split(instruction, -1) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// EncodeAudio wraps raw 16kHz mono PCM in a realtime input frame.
func EncodeAudio(pcm []byte) ([]byte, error) {
	frame, err := json.Marshal(audioMessage{RealtimeInput: realtimeInput{
		Audio: audioBlob{
			Data:     base64.StdEncoding.EncodeToString(pcm),
			MimeType: AudioMimeType,
		},
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audio message: %w", err)
	}
	return frame, nil
}
