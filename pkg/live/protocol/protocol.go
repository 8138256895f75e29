// Package protocol defines the JSON envelopes exchanged with the Gemini Live
// websocket API: the outbound setup/content/realtime-input messages and the
// inbound streamed server messages.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultModel is the native-audio dialog model the client speaks to.
	DefaultModel = "gemini-2.5-flash-preview-native-audio-dialog"

	ModalityText  = "TEXT"
	ModalityAudio = "AUDIO"

	// TurnCoverageAllInput asks the server to treat all realtime input
	// received during a turn as part of that turn.
	TurnCoverageAllInput = "TURN_INCLUDES_ALL_INPUT"

	// AudioInMIMEType is the required encoding for outbound audio chunks:
	// 16-bit little-endian PCM, mono, 16 kHz.
	AudioInMIMEType = "audio/pcm;rate=16000"

	// FrameMIMEType is the encoding used for attached visual frames.
	FrameMIMEType = "image/jpeg"
)

// DecodeError describes a malformed frame pulled off the wire.
type DecodeError struct {
	Code    string
	Message string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Code) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func badFrame(message, code string) *DecodeError {
	return &DecodeError{Code: code, Message: message}
}

// Blob is base64 payload bytes plus their MIME tag.
type Blob struct {
	Data     string `json:"data,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// FileData references an external file by URI instead of carrying bytes inline.
type FileData struct {
	FileURI string `json:"fileUri,omitempty"`
}

// Part is one unit of model content: text, inline bytes, or a file reference.
type Part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *Blob     `json:"inlineData,omitempty"`
	FileData   *FileData `json:"fileData,omitempty"`
}

// Content is an ordered list of parts with an optional role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// TextContent builds a single-part user content block.
func TextContent(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// PrebuiltVoiceConfig names one of the provider-defined synthetic voices.
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

// VoiceConfig wraps the prebuilt voice selection.
type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// SpeechConfig configures audio reply synthesis.
type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

// GenerationConfig carries the requested response shape.
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
	MediaResolution    string        `json:"mediaResolution,omitempty"`
}

// SlidingWindow bounds the compacted context size.
type SlidingWindow struct {
	TargetTokens string `json:"targetTokens,omitempty"`
}

// ContextWindowCompression asks the server to summarize or drop older turns
// once the context grows past TriggerTokens.
type ContextWindowCompression struct {
	TriggerTokens string         `json:"triggerTokens,omitempty"`
	SlidingWindow *SlidingWindow `json:"slidingWindow,omitempty"`
}

// RealtimeInputConfig controls how realtime input maps onto turns.
type RealtimeInputConfig struct {
	TurnCoverage string `json:"turnCoverage,omitempty"`
}

// Setup is the initial configuration block sent once per connection.
type Setup struct {
	Model                    string                    `json:"model"`
	GenerationConfig         *GenerationConfig         `json:"generationConfig,omitempty"`
	SystemInstruction        *Content                  `json:"systemInstruction,omitempty"`
	RealtimeInputConfig      *RealtimeInputConfig      `json:"realtimeInputConfig,omitempty"`
	ContextWindowCompression *ContextWindowCompression `json:"contextWindowCompression,omitempty"`
}

// ClientContent is a structured text turn from the user.
type ClientContent struct {
	Turns        []Content `json:"turns,omitempty"`
	TurnComplete bool      `json:"turnComplete,omitempty"`
}

// ActivityStart marks the beginning of user voice activity when server-side
// automatic detection is disabled.
type ActivityStart struct{}

// ActivityEnd marks the end of user voice activity.
type ActivityEnd struct{}

// RealtimeInput is an out-of-band payload sent alongside or instead of a
// structured text turn: an audio chunk, a video frame, or an activity marker.
type RealtimeInput struct {
	Audio         *Blob          `json:"audio,omitempty"`
	Video         *Blob          `json:"video,omitempty"`
	ActivityStart *ActivityStart `json:"activityStart,omitempty"`
	ActivityEnd   *ActivityEnd   `json:"activityEnd,omitempty"`
}

// ClientMessage is the outbound envelope. Exactly one field is set.
type ClientMessage struct {
	Setup         *Setup         `json:"setup,omitempty"`
	ClientContent *ClientContent `json:"clientContent,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
}

// SetupComplete acknowledges the setup block.
type SetupComplete struct{}

// ModelTurn is the model-authored content inside one streamed fragment.
type ModelTurn struct {
	Parts []Part `json:"parts,omitempty"`
}

// ServerContent is one streamed unit of a model reply.
type ServerContent struct {
	TurnComplete bool       `json:"turnComplete,omitempty"`
	Interrupted  bool       `json:"interrupted,omitempty"`
	ModelTurn    *ModelTurn `json:"modelTurn,omitempty"`
}

// GoAway warns that the server will close the connection.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// ServerMessage is the inbound envelope.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
}

// DecodeServerMessage parses one inbound frame.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, badFrame(fmt.Sprintf("decode server message: %v", err), "bad_json")
	}
	return msg, nil
}
