package scan

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"
)

type fakeTrack struct {
	id    string
	kind  string
	torch bool

	mu       sync.Mutex
	torchOn  bool
	applyErr error
	stops    atomic.Int32
}

func (t *fakeTrack) ID() string   { return t.id }
func (t *fakeTrack) Kind() string { return t.kind }

func (t *fakeTrack) Capabilities() TrackCapabilities {
	return TrackCapabilities{Torch: t.torch}
}

func (t *fakeTrack) Settings() TrackSettings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackSettings{Torch: t.torchOn, Width: 8, Height: 8}
}

func (t *fakeTrack) ApplyConstraints(c TrackConstraints) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.applyErr != nil {
		return t.applyErr
	}
	if c.Torch != nil {
		t.torchOn = *c.Torch
	}
	return nil
}

func (t *fakeTrack) Stop() { t.stops.Add(1) }

type fakeStream struct {
	tracks     []*fakeTrack
	ready      atomic.Bool
	captureErr error
}

func newFakeStream(torch bool) *fakeStream {
	s := &fakeStream{tracks: []*fakeTrack{
		{id: "video-0", kind: "video", torch: torch},
		{id: "audio-0", kind: "audio"},
	}}
	s.ready.Store(true)
	return s
}

func (s *fakeStream) ID() string { return "stream-1" }

func (s *fakeStream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

func (s *fakeStream) VideoTracks() []Track {
	var out []Track
	for _, t := range s.tracks {
		if t.kind == "video" {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeStream) Ready() bool { return s.ready.Load() }

func (s *fakeStream) CaptureFrame() (*image.RGBA, error) {
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

type fakeProvider struct {
	stream   *fakeStream
	devices  []MediaDeviceInfo
	err      error
	acquired atomic.Int32

	mu          sync.Mutex
	constraints Constraints
}

func (p *fakeProvider) EnumerateDevices(context.Context) ([]MediaDeviceInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.devices, nil
}

func (p *fakeProvider) AcquireStream(_ context.Context, c Constraints) (Stream, error) {
	p.mu.Lock()
	p.constraints = c
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.acquired.Add(1)
	return p.stream, nil
}

// step is one scripted detector answer.
type step struct {
	text  string
	err   error
	panic bool
}

type scriptedDetector struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (d *scriptedDetector) Detect(context.Context, image.Image) ([]DetectedBarcode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.calls
	d.calls++
	if i >= len(d.steps) {
		return nil, nil
	}
	st := d.steps[i]
	if st.panic {
		panic("corrupt frame")
	}
	if st.err != nil {
		return nil, st.err
	}
	if st.text == "" {
		return nil, nil
	}
	return []DetectedBarcode{{RawValue: st.text, Format: "qr_code"}}, nil
}

func (d *scriptedDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakePlatform struct {
	detector  NativeDetector
	formatErr error
}

func (p *fakePlatform) SupportedFormats(context.Context) ([]string, error) {
	if p.formatErr != nil {
		return nil, p.formatErr
	}
	return []string{"qr_code", "code_128"}, nil
}

func (p *fakePlatform) NewDetector([]string) (NativeDetector, error) {
	if p.detector == nil {
		return nil, errors.New("detector unavailable")
	}
	return p.detector, nil
}

type collector struct {
	mu     sync.Mutex
	values []string
}

func (c *collector) Publish(v string)  { c.add(v) }
func (c *collector) Navigate(v string) { c.add(v) }

func (c *collector) add(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector) Values() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.values...)
}

type fakeDisplay struct {
	bound   atomic.Int32
	unbound atomic.Int32
}

func (d *fakeDisplay) Bind(Stream) { d.bound.Add(1) }
func (d *fakeDisplay) Unbind()     { d.unbound.Add(1) }

type countingRecorder struct {
	started, stopped, acqFailed    atomic.Int32
	skipped, captured, decodeFails atomic.Int32
	payloads, redirects            atomic.Int32
}

func (r *countingRecorder) SessionStarted(DecoderKind)   { r.started.Add(1) }
func (r *countingRecorder) SessionStopped(time.Duration) { r.stopped.Add(1) }
func (r *countingRecorder) AcquisitionFailed(string)     { r.acqFailed.Add(1) }
func (r *countingRecorder) FrameSkipped()                { r.skipped.Add(1) }
func (r *countingRecorder) FrameCaptured()               { r.captured.Add(1) }
func (r *countingRecorder) DecodeFailed()                { r.decodeFails.Add(1) }
func (r *countingRecorder) PayloadPublished()            { r.payloads.Add(1) }
func (r *countingRecorder) Redirected()                  { r.redirects.Add(1) }
