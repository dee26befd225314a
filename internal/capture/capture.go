package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cweiture/blink-lapse/internal/blink"
	"github.com/cweiture/blink-lapse/pkg/models"
)

// Session is an authenticated vendor connection. *blink.Session is the
// production implementation; tests substitute fakes.
type Session interface {
	Refresh(ctx context.Context) error
	Cameras() []models.Camera
	Snapshot(ctx context.Context, cam models.Camera) ([]byte, error)
}

// Dialer produces sessions. Dial is called for the first tick and again
// whenever the previous session died of an auth failure.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context) (Session, error)

func (f DialFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }

// Gate decides whether a tick may capture at all. DaylightGate is the
// production implementation.
type Gate interface {
	Allow(now time.Time) bool
}

// Options configures a Runner. Writer is required; camera names are
// matched case-sensitively against the vendor's list.
type Options struct {
	Cameras  []string // empty means all cameras
	Interval time.Duration
	Once     bool
	Writer   *Writer
	Daylight Gate // nil means capture around the clock
}

// Stats is a snapshot of the loop counters, keyed by camera name where
// per-camera.
type Stats struct {
	Ticks       int64
	AuthRetries int64
	Frames      map[string]int64
	Failures    map[string]int64
	LastFrame   map[string]time.Time
}

// Runner drives the capture loop: a single actor fetching cameras
// sequentially, one tick per interval.
type Runner struct {
	dialer  Dialer
	opts    Options
	session Session

	mu    sync.Mutex
	stats Stats
}

func NewRunner(dialer Dialer, opts Options) *Runner {
	return &Runner{
		dialer: dialer,
		opts:   opts,
		stats: Stats{
			Frames:    make(map[string]int64),
			Failures:  make(map[string]int64),
			LastFrame: make(map[string]time.Time),
		},
	}
}

// Run executes ticks until ctx is cancelled. In single-shot mode it runs
// exactly one tick and fails unless at least one frame was written.
// Cancellation is a clean shutdown, not an error.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.Once {
		written, err := r.tick(ctx)
		if err != nil {
			return err
		}
		if written == 0 {
			return errors.New("no frames captured")
		}
		return nil
	}

	// The first tick fires immediately; the ticker drives the rest. An
	// overrunning tick starts the next one right away, no catch-up.
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// tick runs one capture round and returns how many frames it wrote. A
// non-nil error terminates the loop; recoverable trouble is logged and
// absorbed here instead.
func (r *Runner) tick(ctx context.Context) (int, error) {
	r.mu.Lock()
	r.stats.Ticks++
	r.mu.Unlock()

	now := time.Now()
	if r.opts.Daylight != nil && !r.opts.Daylight.Allow(now) {
		log.Debug().Time("tick", now).Msg("outside daylight window, skipping tick")
		return 0, nil
	}

	// An established session is revalidated by its refresh; an auth
	// rejection there sends us through the dialer like a first tick.
	if r.session != nil {
		if err := r.session.Refresh(ctx); err != nil {
			switch {
			case errors.Is(err, blink.ErrAuth):
				log.Warn().Err(err).Msg("session expired")
				r.session = nil
			case ctx.Err() != nil:
				return 0, ctx.Err()
			case r.opts.Once:
				return 0, err
			default:
				log.Error().Err(err).Msg("failed to refresh cameras, skipping tick")
				return 0, nil
			}
		}
	}

	if r.session == nil {
		s, err := r.dial(ctx)
		if err != nil {
			switch {
			case errors.Is(err, blink.ErrAuth):
				return 0, fmt.Errorf("authentication failed after retry: %w", err)
			case ctx.Err() != nil:
				return 0, ctx.Err()
			case r.opts.Once:
				return 0, err
			default:
				log.Error().Err(err).Msg("failed to connect, will retry next tick")
				return 0, nil
			}
		}
		r.session = s
	}

	targets, missing := resolveCameras(r.session.Cameras(), r.opts.Cameras)
	for _, name := range missing {
		log.Warn().Str("camera", name).Msg("configured camera not found in account")
	}

	// A selection that matches nothing is a configuration mistake, not a
	// per-camera hiccup. Stop instead of polling the cloud forever for
	// cameras that will never appear.
	if len(targets) == 0 && len(r.opts.Cameras) > 0 {
		available := make([]string, 0, len(r.session.Cameras()))
		for _, cam := range r.session.Cameras() {
			available = append(available, cam.Name)
		}
		if len(available) == 0 {
			return 0, errors.New("no configured camera matches; the account reports no cameras")
		}
		return 0, fmt.Errorf("no configured camera matches the account; available cameras: %s",
			strings.Join(available, ", "))
	}

	written := 0
	for _, cam := range targets {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}

		if err := r.captureOne(ctx, cam); err != nil {
			if errors.Is(err, blink.ErrAuth) {
				// Token died mid-tick. Remaining cameras wait for
				// the re-authenticated next tick.
				log.Warn().Err(err).Str("camera", cam.Name).Msg("session rejected mid tick")
				r.session = nil
				break
			}

			r.bumpFailure(cam.Name)
			if errors.Is(err, blink.ErrDeviceOffline) {
				log.Warn().Str("camera", cam.Name).Msg("camera offline, skipping")
			} else {
				log.Error().Err(err).Str("camera", cam.Name).Msg("capture failed")
			}
			continue
		}
		written++
	}

	return written, nil
}

// dial makes one session, retrying a rejected authentication exactly
// once. A second rejection comes back as ErrAuth for the caller to treat
// as fatal.
func (r *Runner) dial(ctx context.Context) (Session, error) {
	s, err := r.dialer.Dial(ctx)
	if err == nil || !errors.Is(err, blink.ErrAuth) {
		return s, err
	}

	log.Warn().Err(err).Msg("authentication rejected, retrying login once")
	r.mu.Lock()
	r.stats.AuthRetries++
	r.mu.Unlock()

	return r.dialer.Dial(ctx)
}

func (r *Runner) captureOne(ctx context.Context, cam models.Camera) error {
	data, err := r.session.Snapshot(ctx, cam)
	if err != nil {
		return err
	}

	ts := time.Now()
	path, err := r.opts.Writer.Write(cam.Name, ts, data)
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	r.bumpFrame(cam.Name, ts)
	log.Info().Str("camera", cam.Name).Str("path", path).Int("bytes", len(data)).Msg("frame captured")
	return nil
}

// Stats returns a copy of the loop counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Stats{
		Ticks:       r.stats.Ticks,
		AuthRetries: r.stats.AuthRetries,
		Frames:      make(map[string]int64, len(r.stats.Frames)),
		Failures:    make(map[string]int64, len(r.stats.Failures)),
		LastFrame:   make(map[string]time.Time, len(r.stats.LastFrame)),
	}
	for name, n := range r.stats.Frames {
		out.Frames[name] = n
	}
	for name, n := range r.stats.Failures {
		out.Failures[name] = n
	}
	for name, ts := range r.stats.LastFrame {
		out.LastFrame[name] = ts
	}
	return out
}

func (r *Runner) bumpFrame(name string, ts time.Time) {
	r.mu.Lock()
	r.stats.Frames[name]++
	r.stats.LastFrame[name] = ts
	r.mu.Unlock()
}

func (r *Runner) bumpFailure(name string) {
	r.mu.Lock()
	r.stats.Failures[name]++
	r.mu.Unlock()
}

// resolveCameras intersects the configured names with the vendor's
// current list, keeping configured order. Empty selection means every
// camera. Unknown names come back for the caller to warn about.
func resolveCameras(available []models.Camera, names []string) ([]models.Camera, []string) {
	if len(names) == 0 {
		return available, nil
	}

	byName := make(map[string]models.Camera, len(available))
	for _, cam := range available {
		byName[cam.Name] = cam
	}

	var selected []models.Camera
	var missing []string
	for _, name := range names {
		if cam, ok := byName[name]; ok {
			selected = append(selected, cam)
		} else {
			missing = append(missing, name)
		}
	}
	return selected, missing
}
