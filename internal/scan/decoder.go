package scan

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go-qrscan-webapp/internal/decoder"
	"go-qrscan-webapp/internal/logger"
)

// Decoder turns one captured frame into at most one payload.
type Decoder interface {
	Decode(ctx context.Context, frame *image.RGBA) (payload string, ok bool, err error)
}

// DetectedBarcode is one code found by a native detector.
type DetectedBarcode struct {
	RawValue string
	Format   string
}

// NativeDetector is a platform barcode detector.
type NativeDetector interface {
	Detect(ctx context.Context, img image.Image) ([]DetectedBarcode, error)
}

// NativePlatform exposes a platform detector, when the platform has one.
type NativePlatform interface {
	SupportedFormats(ctx context.Context) ([]string, error)
	NewDetector(formats []string) (NativeDetector, error)
}

// PixelDecoder is a decoding library working on raw RGBA pixels. It returns
// decoder.ErrNoCodeFound when the frame holds no code.
type PixelDecoder interface {
	DecodePixels(pixels []byte, width, height int) (*decoder.DecodeResult, error)
}

// NativeDecoder adapts a NativeDetector. The first detection wins.
type NativeDecoder struct {
	detector NativeDetector
}

func NewNativeDecoder(detector NativeDetector) *NativeDecoder {
	return &NativeDecoder{detector: detector}
}

func (d *NativeDecoder) Decode(ctx context.Context, frame *image.RGBA) (string, bool, error) {
	codes, err := d.detector.Detect(ctx, frame)
	if err != nil {
		return "", false, err
	}
	if len(codes) == 0 {
		return "", false, nil
	}
	return codes[0].RawValue, true, nil
}

// LibraryDecoder adapts a PixelDecoder.
type LibraryDecoder struct {
	lib PixelDecoder
}

func NewLibraryDecoder(lib PixelDecoder) *LibraryDecoder {
	return &LibraryDecoder{lib: lib}
}

func (d *LibraryDecoder) Decode(_ context.Context, frame *image.RGBA) (string, bool, error) {
	b := frame.Bounds()
	pixels := frame.Pix
	if frame.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		pixels = copyRGBA(frame).Pix
	}

	result, err := d.lib.DecodePixels(pixels, b.Dx(), b.Dy())
	if errors.Is(err, decoder.ErrNoCodeFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if result == nil {
		return "", false, nil
	}
	return result.Text, true, nil
}

// copyRGBA returns a tightly packed copy of frame anchored at the origin.
func copyRGBA(frame *image.RGBA) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := frame.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], frame.Pix[src:src+b.Dx()*4])
	}
	return out
}

// DecoderKind names the decoder a session runs with.
type DecoderKind string

const (
	DecoderNative  DecoderKind = "native"
	DecoderLibrary DecoderKind = "library"
	DecoderNone    DecoderKind = "none"
)

// DecoderSource holds the decoding capabilities available to sessions.
// Either field may be nil.
type DecoderSource struct {
	Native  NativePlatform
	Library PixelDecoder
}

// Select picks the decoder for a new session: the native detector when the
// platform offers one that can be constructed, otherwise the library.
// A nil Decoder with DecoderNone means nothing can decode.
func (s DecoderSource) Select(ctx context.Context, log *logger.StructuredLogger) (Decoder, DecoderKind) {
	if s.Native != nil {
		detector, err := newNativeDetector(ctx, s.Native)
		if err == nil {
			return NewNativeDecoder(detector), DecoderNative
		}
		log.Warn("Native barcode detector unavailable, falling back", map[string]interface{}{
			"component": "scan",
			"error":     err.Error(),
		})
	}
	if s.Library != nil {
		return NewLibraryDecoder(s.Library), DecoderLibrary
	}
	return nil, DecoderNone
}

func newNativeDetector(ctx context.Context, platform NativePlatform) (NativeDetector, error) {
	formats, err := platform.SupportedFormats(ctx)
	if err != nil {
		return nil, fmt.Errorf("supported formats: %w", err)
	}
	return platform.NewDetector(formats)
}
