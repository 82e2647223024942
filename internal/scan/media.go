package scan

import (
	"context"
	"errors"
	"image"
)

// FacingMode hints which camera to prefer when no device is named.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// Device kinds reported by EnumerateDevices.
const (
	KindVideoInput = "videoinput"
	KindAudioInput = "audioinput"
)

// MediaDeviceInfo describes one device reported by the platform.
type MediaDeviceInfo struct {
	DeviceID string `json:"deviceId"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
}

// CameraDescriptor is a selectable video input.
type CameraDescriptor struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Constraints select the stream to acquire.
type Constraints struct {
	// DeviceID requests an exact device. Empty means any.
	DeviceID   string
	FacingMode FacingMode
	Audio      bool
}

// TrackCapabilities lists what a track can be asked to do.
type TrackCapabilities struct {
	Torch bool
}

// TrackSettings is the current state of a track.
type TrackSettings struct {
	Torch  bool
	Width  int
	Height int
}

// TrackConstraints are applied to a live track. Nil fields are left as-is.
type TrackConstraints struct {
	Torch *bool
}

// Track is one media track of a stream.
type Track interface {
	ID() string
	Kind() string
	Capabilities() TrackCapabilities
	Settings() TrackSettings
	ApplyConstraints(TrackConstraints) error
	// Stop releases the underlying hardware.
	Stop()
}

// Stream is an acquired capture stream.
type Stream interface {
	ID() string
	Tracks() []Track
	VideoTracks() []Track
	// Ready reports whether enough data is buffered to read a frame.
	Ready() bool
	// CaptureFrame copies the current video frame at native resolution.
	CaptureFrame() (*image.RGBA, error)
}

// CameraProvider enumerates cameras and hands out streams.
type CameraProvider interface {
	EnumerateDevices(ctx context.Context) ([]MediaDeviceInfo, error)
	AcquireStream(ctx context.Context, constraints Constraints) (Stream, error)
}

// Acquisition failures. Providers should wrap one of these.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceNotFound   = errors.New("camera not found")
	ErrMedia            = errors.New("media error")
)

// AcquisitionReason returns a short label for an acquisition error.
func AcquisitionReason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrDeviceNotFound):
		return "not_found"
	default:
		return "media_error"
	}
}
