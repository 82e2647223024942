package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go-qrscan-webapp/internal/config"
	"go-qrscan-webapp/internal/logger"
)

// Policy controls polling and what happens to decoded payloads.
type Policy struct {
	PollInterval      time.Duration
	RedirectDelay     time.Duration
	BareHostnameMatch bool
	AutoRedirect      bool
}

// PolicyFromConfig builds a Policy from the scanner configuration.
func PolicyFromConfig(cfg config.ScannerConfig) Policy {
	return Policy{
		PollInterval:      cfg.PollInterval(),
		RedirectDelay:     cfg.RedirectDelay(),
		BareHostnameMatch: cfg.BareHostnameMatch,
		AutoRedirect:      cfg.AutoRedirectDefault,
	}
}

// DefaultPolicy matches the default scanner profile.
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.ScannerProfile(config.ProfileDefault))
}

// Options wires a Controller to its collaborators. Provider is required;
// the rest may be left nil.
type Options struct {
	Provider  CameraProvider
	Decoders  DecoderSource
	Display   DisplaySink
	Results   ResultSink
	Navigator Navigator
	Recorder  Recorder
	Logger    *logger.StructuredLogger
	Policy    Policy
}

// StartOptions select the camera for a session.
type StartOptions struct {
	DeviceID   string
	FacingMode FacingMode
}

// TorchState is the outcome of a torch toggle.
type TorchState struct {
	Supported bool `json:"supported"`
	Enabled   bool `json:"enabled"`
}

var ErrTorch = errors.New("torch constraint rejected")

// Controller owns the camera lifecycle of a scanning page and applies the
// decode, dedupe and redirect policy to what the scan loop finds. It holds
// at most one Session. Methods are safe for concurrent use. Sinks are called
// from the scan loop and must not call Stop synchronously.
type Controller struct {
	mu      sync.Mutex
	session *Session
	current atomic.Pointer[Session]

	provider  CameraProvider
	decoders  DecoderSource
	display   DisplaySink
	results   ResultSink
	navigator Navigator
	recorder  Recorder
	log       *logger.StructuredLogger
	policy    Policy

	autoRedirect atomic.Bool
}

func NewController(opts Options) *Controller {
	c := &Controller{
		provider:  opts.Provider,
		decoders:  opts.Decoders,
		display:   opts.Display,
		results:   opts.Results,
		navigator: opts.Navigator,
		recorder:  opts.Recorder,
		log:       opts.Logger,
		policy:    opts.Policy,
	}
	if c.display == nil {
		c.display = nopDisplay{}
	}
	if c.recorder == nil {
		c.recorder = NopRecorder{}
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	if c.policy.PollInterval <= 0 {
		c.policy.PollInterval = DefaultPolicy().PollInterval
	}
	c.autoRedirect.Store(c.policy.AutoRedirect)
	return c
}

// Start acquires a video stream and begins scanning. It is a no-op while a
// session is active. Acquisition errors wrap ErrPermissionDenied,
// ErrDeviceNotFound or ErrMedia and leave the controller inactive; they are
// not retried.
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil
	}

	constraints := Constraints{
		DeviceID:   opts.DeviceID,
		FacingMode: opts.FacingMode,
	}
	if constraints.FacingMode == "" {
		constraints.FacingMode = FacingEnvironment
	}

	stream, err := c.provider.AcquireStream(ctx, constraints)
	if err != nil {
		err = classifyAcquisitionError(err)
		c.recorder.AcquisitionFailed(AcquisitionReason(err))
		c.log.Error("Unable to access camera", err, map[string]interface{}{
			"component": "scan",
			"device_id": opts.DeviceID,
		})
		return fmt.Errorf("start scan: %w", err)
	}

	dec, kind := c.decoders.Select(ctx, c.log)
	s := newSession(stream, dec, kind)

	c.display.Bind(stream)

	if dec == nil {
		c.log.Warn("No decoder available, frames will not be decoded", map[string]interface{}{
			"component":  "scan",
			"session_id": s.ID,
		})
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	c.session = s
	c.current.Store(s)

	c.recorder.SessionStarted(kind)
	c.log.LogScanEvent("Scan session started", s.ID, map[string]interface{}{
		"stream_id": stream.ID(),
		"decoder":   string(kind),
	})

	go c.run(loopCtx, s)
	return nil
}

// Stop ends the active session: the loop is cancelled and awaited, every
// track is stopped once and the display is unbound. Safe to call at any
// time, including when no session is active.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	c.current.Store(nil)

	s.cancel()
	<-s.done

	s.release()
	c.display.Unbind()

	lifetime := time.Since(s.StartedAt)
	c.recorder.SessionStopped(lifetime)
	c.log.LogScanEvent("Scan session stopped", s.ID, map[string]interface{}{
		"duration": lifetime.String(),
	})
}

// Scanning reports whether a session is active.
func (c *Controller) Scanning() bool {
	return c.current.Load() != nil
}

// SessionID returns the ID of the active session, or "".
func (c *Controller) SessionID() string {
	if s := c.current.Load(); s != nil {
		return s.ID
	}
	return ""
}

// LastScanned returns the last payload of the active session, or "".
func (c *Controller) LastScanned() string {
	if s := c.current.Load(); s != nil {
		return s.LastScanned()
	}
	return ""
}

// SetAutoRedirect switches redirecting on decoded URLs on or off.
func (c *Controller) SetAutoRedirect(enabled bool) {
	c.autoRedirect.Store(enabled)
}

func (c *Controller) AutoRedirect() bool {
	return c.autoRedirect.Load()
}

// ToggleTorch flips the torch of the active track. Without a session or
// without torch support it does nothing and reports Supported=false. A
// rejected constraint is logged and returned, the session keeps running.
func (c *Controller) ToggleTorch() (TorchState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.track == nil {
		return TorchState{}, nil
	}
	track := c.session.track
	if !track.Capabilities().Torch {
		return TorchState{}, nil
	}

	current := track.Settings().Torch
	next := !current
	if err := track.ApplyConstraints(TrackConstraints{Torch: &next}); err != nil {
		c.log.Warn("Torch toggle failed", map[string]interface{}{
			"component":  "scan",
			"session_id": c.session.ID,
			"error":      err.Error(),
		})
		return TorchState{Supported: true, Enabled: current}, fmt.Errorf("%w: %v", ErrTorch, err)
	}

	return TorchState{Supported: true, Enabled: next}, nil
}

// ListCameras returns the video inputs of the platform. Labels can be empty
// until camera permission was granted once; those get a "Camera N" label.
func (c *Controller) ListCameras(ctx context.Context) ([]CameraDescriptor, error) {
	devices, err := c.provider.EnumerateDevices(ctx)
	if err != nil {
		c.log.Error("Error listing cameras", err, map[string]interface{}{"component": "scan"})
		return nil, err
	}

	cameras := make([]CameraDescriptor, 0, len(devices))
	for _, d := range devices {
		if d.Kind != KindVideoInput {
			continue
		}
		label := d.Label
		if label == "" {
			label = fmt.Sprintf("Camera %d", len(cameras)+1)
		}
		cameras = append(cameras, CameraDescriptor{ID: d.DeviceID, Label: label})
	}
	return cameras, nil
}

// run is the scan loop of one session. The context is checked at every
// iteration boundary; an iteration is never started before the previous
// one finished.
func (c *Controller) run(ctx context.Context, s *Session) {
	defer close(s.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		c.scanFrame(ctx, s)
		timer.Reset(c.policy.PollInterval)
	}
}

// scanFrame runs one capture and decode. Failures, panics included, are
// logged and contained to the iteration.
func (c *Controller) scanFrame(ctx context.Context, s *Session) {
	defer func() {
		if r := recover(); r != nil {
			c.recorder.DecodeFailed()
			c.log.Warn("Detection error", map[string]interface{}{
				"component":  "scan",
				"session_id": s.ID,
				"panic":      fmt.Sprint(r),
			})
		}
	}()

	if !s.stream.Ready() {
		c.recorder.FrameSkipped()
		return
	}

	frame, err := s.stream.CaptureFrame()
	if err != nil {
		c.frameFailed(s, "Frame capture error", err)
		return
	}
	c.recorder.FrameCaptured()

	if s.decoder == nil {
		return
	}

	payload, ok, err := s.decoder.Decode(ctx, frame)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.frameFailed(s, "Detection error", err)
		return
	}
	if ok {
		c.handleResult(s, payload)
	}
}

func (c *Controller) frameFailed(s *Session, message string, err error) {
	c.recorder.DecodeFailed()
	c.log.Warn(message, map[string]interface{}{
		"component":  "scan",
		"session_id": s.ID,
		"error":      err.Error(),
	})
}

// handleResult publishes a new payload and schedules a redirect when it
// looks like a URL. Payloads are trimmed and repeats of the previous
// payload are dropped. A scheduled redirect cannot be cancelled.
func (c *Controller) handleResult(s *Session, payload string) {
	payload = strings.TrimSpace(payload)
	if !s.accept(payload) {
		return
	}

	c.recorder.PayloadPublished()
	if c.results != nil {
		c.results.Publish(payload)
	}

	if !c.autoRedirect.Load() || !LooksLikeURL(payload, c.policy.BareHostnameMatch) {
		return
	}

	if c.navigator == nil {
		return
	}

	target := NormalizeURL(payload)
	c.log.LogScanEvent("Redirecting to scanned URL", s.ID, map[string]interface{}{
		"url":   target,
		"delay": c.policy.RedirectDelay.String(),
	})
	c.recorder.Redirected()
	time.AfterFunc(c.policy.RedirectDelay, func() {
		c.navigator.Navigate(target)
	})
}

func classifyAcquisitionError(err error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceNotFound) || errors.Is(err, ErrMedia) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMedia, err)
}
