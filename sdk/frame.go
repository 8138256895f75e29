package mojo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

// frameJPEGQuality matches the lossy-but-cheap encoding the browser capture
// path used for attached stills.
const frameJPEGQuality = 80

// FrameSource supplies still frames from a live video feed (webcam or screen
// share). The session client captures exactly one frame per attachment; it
// never processes or analyzes the image content.
type FrameSource interface {
	Frame() (image.Image, error)
}

// FrameFunc adapts a plain function to the FrameSource interface.
type FrameFunc func() (image.Image, error)

func (f FrameFunc) Frame() (image.Image, error) { return f() }

// StillFrame is a FrameSource backed by a single already-captured image.
type StillFrame struct {
	Image image.Image
}

func (s StillFrame) Frame() (image.Image, error) {
	if s.Image == nil {
		return nil, fmt.Errorf("still frame has no image")
	}
	return s.Image, nil
}

// captureFrame rasterizes the source's current frame as a compressed JPEG
// and returns it base64-encoded, ready to ride in a realtime video input.
func captureFrame(source FrameSource) (string, error) {
	img, err := source.Frame()
	if err != nil {
		return "", fmt.Errorf("acquire frame: %w", err)
	}
	if img == nil {
		return "", fmt.Errorf("frame source returned no image")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: frameJPEGQuality}); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
