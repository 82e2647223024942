// Package camera provides a CameraProvider backed by still images on disk.
// Each subdirectory of the root is one camera; a root holding images
// directly is a single camera with ID ".". Frames are replayed in file name
// order and loop forever.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go-qrscan-webapp/internal/decoder"
	"go-qrscan-webapp/internal/scan"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Camera names that hint at a facing direction.
var facingHints = map[scan.FacingMode][]string{
	scan.FacingEnvironment: {"back", "rear", "environment"},
	scan.FacingUser:        {"front", "user", "selfie"},
}

// ErrStreamStopped is returned when capturing from a stopped stream.
var ErrStreamStopped = errors.New("stream stopped")

// FileProvider serves directories of images as cameras.
type FileProvider struct {
	root string
}

var _ scan.CameraProvider = (*FileProvider)(nil)

func NewFileProvider(root string) *FileProvider {
	return &FileProvider{root: root}
}

func (p *FileProvider) EnumerateDevices(ctx context.Context) ([]scan.MediaDeviceInfo, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, classify(err)
	}

	var devices []scan.MediaDeviceInfo
	hasImages := false
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if e.IsDir() {
			devices = append(devices, scan.MediaDeviceInfo{
				DeviceID: e.Name(),
				Kind:     scan.KindVideoInput,
				Label:    labelFor(e.Name()),
			})
			continue
		}
		if isImage(e.Name()) {
			hasImages = true
		}
	}

	if hasImages {
		devices = append([]scan.MediaDeviceInfo{{
			DeviceID: ".",
			Kind:     scan.KindVideoInput,
			Label:    labelFor(filepath.Base(p.root)),
		}}, devices...)
	}
	return devices, nil
}

// AcquireStream loads every frame of the selected camera. Audio is never
// offered.
func (p *FileProvider) AcquireStream(ctx context.Context, c scan.Constraints) (scan.Stream, error) {
	deviceID := c.DeviceID
	if deviceID == "" {
		id, err := p.pickDevice(ctx, c.FacingMode)
		if err != nil {
			return nil, err
		}
		deviceID = id
	}

	dir := filepath.Join(p.root, filepath.Clean("/"+deviceID))
	frames, err := loadFrames(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("camera %q: %w", deviceID, err)
	}

	return newFileStream(deviceID, frames), nil
}

func (p *FileProvider) pickDevice(ctx context.Context, facing scan.FacingMode) (string, error) {
	devices, err := p.EnumerateDevices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("no cameras under %s: %w", p.root, scan.ErrDeviceNotFound)
	}

	for _, d := range devices {
		name := strings.ToLower(d.DeviceID)
		for _, hint := range facingHints[facing] {
			if strings.Contains(name, hint) {
				return d.DeviceID, nil
			}
		}
	}
	return devices[0].DeviceID, nil
}

func loadFrames(ctx context.Context, dir string) ([]*image.RGBA, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, classify(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no images in %s: %w", dir, scan.ErrDeviceNotFound)
	}
	sort.Strings(names)

	frames := make([]*image.RGBA, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		img, err := LoadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		frames = append(frames, decoder.ToRGBA(img))
	}
	return frames, nil
}

// LoadImage decodes a still image in any registered format.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classify(err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", filepath.Base(path), scan.ErrMedia, err)
	}
	return img, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", scan.ErrDeviceNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", scan.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", scan.ErrMedia, err)
	}
}

func isImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func labelFor(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	if name == "" || name == "." {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// fileStream replays frames in order.
type fileStream struct {
	id     string
	frames []*image.RGBA
	next   atomic.Int64
	video  *fileTrack
}

func newFileStream(deviceID string, frames []*image.RGBA) *fileStream {
	b := frames[0].Bounds()
	return &fileStream{
		id:     uuid.NewString(),
		frames: frames,
		video: &fileTrack{
			id:     deviceID,
			width:  b.Dx(),
			height: b.Dy(),
		},
	}
}

func (s *fileStream) ID() string                { return s.id }
func (s *fileStream) Tracks() []scan.Track      { return []scan.Track{s.video} }
func (s *fileStream) VideoTracks() []scan.Track { return []scan.Track{s.video} }
func (s *fileStream) Ready() bool               { return !s.video.stopped.Load() }

// CaptureFrame returns a copy of the next frame.
func (s *fileStream) CaptureFrame() (*image.RGBA, error) {
	if s.video.stopped.Load() {
		return nil, ErrStreamStopped
	}
	i := (s.next.Add(1) - 1) % int64(len(s.frames))
	src := s.frames[i]

	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out, nil
}

// fileTrack simulates a torch so the toggle path can be driven from disk.
type fileTrack struct {
	id      string
	width   int
	height  int
	stopped atomic.Bool

	mu    sync.Mutex
	torch bool
}

func (t *fileTrack) ID() string   { return t.id }
func (t *fileTrack) Kind() string { return "video" }

func (t *fileTrack) Capabilities() scan.TrackCapabilities {
	return scan.TrackCapabilities{Torch: true}
}

func (t *fileTrack) Settings() scan.TrackSettings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return scan.TrackSettings{Torch: t.torch, Width: t.width, Height: t.height}
}

func (t *fileTrack) ApplyConstraints(c scan.TrackConstraints) error {
	if t.stopped.Load() {
		return ErrStreamStopped
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c.Torch != nil {
		t.torch = *c.Torch
	}
	return nil
}

func (t *fileTrack) Stop() { t.stopped.Store(true) }
