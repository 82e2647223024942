package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go-qrscan-webapp/internal/camera"
	"go-qrscan-webapp/internal/decoder"
	"go-qrscan-webapp/internal/monitoring"
	"go-qrscan-webapp/internal/scan"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	cameraDir   string
	deviceID    string
	facing      string
	noRedirect  bool
	maxResults  int
	duration    time.Duration
	listOnly    bool
	metricsAddr string
}

func newScanCmd(a *app) *cobra.Command {
	opts := scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a directory-backed camera and print every new payload",
		Long: `Runs a scan session over a camera made of still images. Each
subdirectory of --camera is one camera. Distinct payloads are printed as they
are found; payloads that look like web addresses are "opened" by printing the
normalized URL after the redirect delay. The session ends on SIGINT/SIGTERM,
after --duration, or once --max-results distinct payloads were seen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.scan(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.cameraDir, "camera", "", "directory of camera image folders (required)")
	f.StringVar(&opts.deviceID, "device", "", "camera to open; defaults to the one matching --facing")
	f.StringVar(&opts.facing, "facing", string(scan.FacingEnvironment), "preferred camera facing: environment or user")
	f.BoolVar(&opts.noRedirect, "no-redirect", false, "never open scanned URLs")
	f.IntVar(&opts.maxResults, "max-results", 0, "stop after this many distinct payloads (0 = unlimited)")
	f.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = until interrupted)")
	f.BoolVar(&opts.listOnly, "list", false, "list cameras and exit")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "expose scan metrics on this address while scanning")
	_ = cmd.MarkFlagRequired("camera")

	return cmd
}

func (a *app) scan(parent context.Context, out io.Writer, opts scanOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := &resultPrinter{out: out, max: opts.maxResults, done: make(chan struct{})}

	policy := scan.PolicyFromConfig(a.cfg.Scanner)
	if opts.noRedirect {
		policy.AutoRedirect = false
	}

	var recorder scan.Recorder = scan.NopRecorder{}
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		recorder = monitoring.NewScanCollector(reg)
		srv := &http.Server{Addr: opts.metricsAddr, Handler: monitoring.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Metrics listener failed", err, map[string]interface{}{"addr": opts.metricsAddr})
			}
		}()
		defer srv.Close()
	}

	ctrl := scan.NewController(scan.Options{
		Provider:  camera.NewFileProvider(opts.cameraDir),
		Decoders:  scan.DecoderSource{Library: decoder.NewZXingDecoder(decoder.PriorityAuto)},
		Results:   printer,
		Navigator: printer,
		Recorder:  redirectTracker{Recorder: recorder, pending: &printer.pending},
		Logger:    a.log,
		Policy:    policy,
	})

	if opts.listOnly {
		cameras, err := ctrl.ListCameras(ctx)
		if err != nil {
			return err
		}
		for _, c := range cameras {
			fmt.Fprintf(out, "%s\t%s\n", c.ID, c.Label)
		}
		return nil
	}

	err := ctrl.Start(ctx, scan.StartOptions{
		DeviceID:   opts.deviceID,
		FacingMode: scan.FacingMode(opts.facing),
	})
	if err != nil {
		return err
	}

	var timeout <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
	case <-printer.done:
	case <-timeout:
	}

	ctrl.Stop()
	printer.waitRedirects(policy.RedirectDelay)
	return nil
}

// resultPrinter is the result sink and navigator of the CLI. It signals done
// once max distinct payloads were printed.
type resultPrinter struct {
	out io.Writer
	max int

	mu        sync.Mutex
	count     int
	pending   sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

func (p *resultPrinter) Publish(payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	fmt.Fprintln(p.out, payload)

	if p.max > 0 && p.count >= p.max {
		p.closeOnce.Do(func() { close(p.done) })
	}
}

// Navigate runs when a scheduled redirect fires.
func (p *resultPrinter) Navigate(url string) {
	defer p.pending.Done()

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "-> %s\n", url)
}

// waitRedirects lets redirects scheduled before Stop print their URL.
func (p *resultPrinter) waitRedirects(delay time.Duration) {
	finished := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(delay + time.Second):
	}
}

// redirectTracker counts redirects as they are scheduled.
type redirectTracker struct {
	scan.Recorder
	pending *sync.WaitGroup
}

func (r redirectTracker) Redirected() {
	r.pending.Add(1)
	r.Recorder.Redirected()
}
