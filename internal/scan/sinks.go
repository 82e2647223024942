package scan

import "time"

// DisplaySink shows the live stream of the active session.
type DisplaySink interface {
	Bind(stream Stream)
	Unbind()
}

// ResultSink receives every newly decoded payload.
type ResultSink interface {
	Publish(payload string)
}

// Navigator performs the redirect to a decoded URL.
type Navigator interface {
	Navigate(url string)
}

// Recorder observes session activity, typically for metrics.
type Recorder interface {
	SessionStarted(decoder DecoderKind)
	SessionStopped(lifetime time.Duration)
	AcquisitionFailed(reason string)
	FrameSkipped()
	FrameCaptured()
	DecodeFailed()
	PayloadPublished()
	Redirected()
}

// ResultFunc adapts a function to ResultSink.
type ResultFunc func(payload string)

func (f ResultFunc) Publish(payload string) { f(payload) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string)

func (f NavigatorFunc) Navigate(url string) { f(url) }

type nopDisplay struct{}

func (nopDisplay) Bind(Stream) {}
func (nopDisplay) Unbind()     {}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) SessionStarted(DecoderKind)   {}
func (NopRecorder) SessionStopped(time.Duration) {}
func (NopRecorder) AcquisitionFailed(string)     {}
func (NopRecorder) FrameSkipped()                {}
func (NopRecorder) FrameCaptured()               {}
func (NopRecorder) DecodeFailed()                {}
func (NopRecorder) PayloadPublished()            {}
func (NopRecorder) Redirected()                  {}
