package camera

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go-qrscan-webapp/internal/decoder"
	"go-qrscan-webapp/internal/scan"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeQR(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, qrcode.WriteFile(content, qrcode.Medium, 256, path))
}

func writeQRBMP(t *testing.T, path, content string) {
	t.Helper()
	q, err := qrcode.New(content, qrcode.Medium)
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, bmp.Encode(f, q.Image(256)))
}

func cameraTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeQR(t, filepath.Join(root, "front_cam", "01.png"), "front-1")
	writeQR(t, filepath.Join(root, "back-cam", "01.png"), "back-1")
	writeQR(t, filepath.Join(root, "back-cam", "02.png"), "back-2")
	require.NoError(t, os.WriteFile(filepath.Join(root, "back-cam", "notes.txt"), []byte("x"), 0o644))
	return root
}

func TestFileProvider_EnumerateDevices(t *testing.T) {
	root := cameraTree(t)

	devices, err := NewFileProvider(root).EnumerateDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []scan.MediaDeviceInfo{
		{DeviceID: "back-cam", Kind: scan.KindVideoInput, Label: "Back cam"},
		{DeviceID: "front_cam", Kind: scan.KindVideoInput, Label: "Front cam"},
	}, devices)
}

func TestFileProvider_RootWithImagesIsACamera(t *testing.T) {
	root := t.TempDir()
	writeQR(t, filepath.Join(root, "a.png"), "root")

	devices, err := NewFileProvider(root).EnumerateDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, ".", devices[0].DeviceID)

	stream, err := NewFileProvider(root).AcquireStream(context.Background(), scan.Constraints{DeviceID: "."})
	require.NoError(t, err)
	assert.Len(t, stream.VideoTracks(), 1)
}

func TestFileProvider_FacingModePicksMatchingCamera(t *testing.T) {
	p := NewFileProvider(cameraTree(t))

	stream, err := p.AcquireStream(context.Background(), scan.Constraints{FacingMode: scan.FacingEnvironment})
	require.NoError(t, err)
	assert.Equal(t, "back-cam", stream.VideoTracks()[0].ID())

	stream, err = p.AcquireStream(context.Background(), scan.Constraints{FacingMode: scan.FacingUser})
	require.NoError(t, err)
	assert.Equal(t, "front_cam", stream.VideoTracks()[0].ID())
}

func TestFileProvider_AcquireErrors(t *testing.T) {
	root := cameraTree(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken", "a.png"), []byte("not a png"), 0o644))

	tests := []struct {
		name     string
		provider *FileProvider
		device   string
		want     error
	}{
		{"missing root", NewFileProvider(filepath.Join(root, "nope")), "", scan.ErrDeviceNotFound},
		{"unknown device", NewFileProvider(root), "side-cam", scan.ErrDeviceNotFound},
		{"no images", NewFileProvider(root), "empty", scan.ErrDeviceNotFound},
		{"corrupt image", NewFileProvider(root), "broken", scan.ErrMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.provider.AcquireStream(context.Background(), scan.Constraints{DeviceID: tt.device})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFileProvider_DeviceIDCannotEscapeRoot(t *testing.T) {
	root := cameraTree(t)
	p := NewFileProvider(filepath.Join(root, "front_cam"))

	_, err := p.AcquireStream(context.Background(), scan.Constraints{DeviceID: "../back-cam"})
	assert.ErrorIs(t, err, scan.ErrDeviceNotFound)
}

func TestFileStream_CyclesFramesAndStops(t *testing.T) {
	p := NewFileProvider(cameraTree(t))
	stream, err := p.AcquireStream(context.Background(), scan.Constraints{DeviceID: "back-cam"})
	require.NoError(t, err)

	lib := decoder.NewZXingDecoder(decoder.PriorityAuto)
	var got []string
	for i := 0; i < 3; i++ {
		require.True(t, stream.Ready())
		frame, err := stream.CaptureFrame()
		require.NoError(t, err)
		res, err := lib.DecodeImage(frame)
		require.NoError(t, err)
		got = append(got, res.Text)
	}
	assert.Equal(t, []string{"back-1", "back-2", "back-1"}, got)

	for _, tr := range stream.Tracks() {
		tr.Stop()
	}
	assert.False(t, stream.Ready())
	_, err = stream.CaptureFrame()
	assert.ErrorIs(t, err, ErrStreamStopped)
}

func TestFileTrack_Torch(t *testing.T) {
	p := NewFileProvider(cameraTree(t))
	stream, err := p.AcquireStream(context.Background(), scan.Constraints{DeviceID: "front_cam"})
	require.NoError(t, err)

	track := stream.VideoTracks()[0]
	assert.True(t, track.Capabilities().Torch)
	assert.Equal(t, 256, track.Settings().Width)

	on := true
	require.NoError(t, track.ApplyConstraints(scan.TrackConstraints{Torch: &on}))
	assert.True(t, track.Settings().Torch)

	track.Stop()
	assert.ErrorIs(t, track.ApplyConstraints(scan.TrackConstraints{Torch: &on}), ErrStreamStopped)
}

func TestLoadImage_BMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.bmp")
	writeQRBMP(t, path, "bitmap")

	img, err := LoadImage(path)
	require.NoError(t, err)

	res, err := decoder.NewZXingDecoder(decoder.PriorityAuto).DecodeImage(img)
	require.NoError(t, err)
	assert.Equal(t, "bitmap", res.Text)
}

type results struct {
	mu     sync.Mutex
	values []string
}

func (r *results) Publish(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *results) Values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestFileProvider_DrivesScanController(t *testing.T) {
	root := t.TempDir()
	writeQR(t, filepath.Join(root, "back", "01.png"), "https://example.com/1")
	writeQR(t, filepath.Join(root, "back", "02.png"), "https://example.com/1")
	writeQR(t, filepath.Join(root, "back", "03.png"), "plain text")

	out := &results{}
	ctrl := scan.NewController(scan.Options{
		Provider: NewFileProvider(root),
		Decoders: scan.DecoderSource{Library: decoder.NewZXingDecoder(decoder.PriorityAuto)},
		Results:  out,
		Policy:   scan.Policy{PollInterval: time.Millisecond},
	})
	t.Cleanup(ctrl.Stop)

	require.NoError(t, ctrl.Start(context.Background(), scan.StartOptions{}))
	assert.Eventually(t, func() bool { return len(out.Values()) >= 2 }, 5*time.Second, 5*time.Millisecond)

	ctrl.Stop()
	assert.Equal(t, []string{"https://example.com/1", "plain text"}, out.Values()[:2])
}
