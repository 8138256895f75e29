package mojo

import (
	"encoding/base64"
	"encoding/binary"
	"strconv"
	"strings"
)

// LiveOutputSampleRate is the provider's fixed audio reply rate (24 kHz,
// 16-bit mono PCM).
const LiveOutputSampleRate = 24000

// PCMToWAV wraps raw PCM audio data with a canonical 44-byte WAV header so
// generic decoders can play it.
//
// Audio replies from the live endpoint use sampleRate=24000,
// bitsPerSample=16, channels=1.
func PCMToWAV(pcmData []byte, sampleRate, bitsPerSample, channels int) []byte {
	dataLen := len(pcmData)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen)) // File size - 8
	copy(header[8:12], "WAVE")

	// fmt sub-chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)                    // Sub-chunk size (16 for PCM)
	binary.LittleEndian.PutUint16(header[20:22], 1)                     // Audio format (1 = PCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))      // Number of channels
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))    // Sample rate
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))      // Byte rate
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))    // Block align
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample)) // Bits per sample

	// data sub-chunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen)) // Data size

	return append(header, pcmData...)
}

// IsRawPCM reports whether the MIME tag names a raw PCM payload that needs a
// WAV header before a generic decoder can handle it.
func IsRawPCM(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mt, "audio/pcm") || strings.HasPrefix(mt, "audio/l16")
}

// SampleRateFromMIME extracts a "rate=N" parameter from an audio MIME tag,
// falling back to the supplied default.
func SampleRateFromMIME(mimeType string, fallback int) int {
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		value, ok := strings.CutPrefix(param, "rate=")
		if !ok {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || rate <= 0 {
			return fallback
		}
		return rate
	}
	return fallback
}

// AudioDataURI converts an inbound audio payload into a data: URI a generic
// audio element can play. Raw PCM payloads are wrapped in a WAV header at
// the rate declared by the MIME tag (24 kHz when unspecified); any other
// payload is passed through with its own tag, defaulting to audio/mp3 when
// the tag is missing.
func AudioDataURI(data []byte, mimeType string) string {
	if IsRawPCM(mimeType) {
		rate := SampleRateFromMIME(mimeType, LiveOutputSampleRate)
		data = PCMToWAV(data, rate, 16, 1)
		mimeType = "audio/wav"
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "audio/mp3"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
