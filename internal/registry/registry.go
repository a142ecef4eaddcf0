package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/kioskfleet/internal/codegen"
	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/keylock"
	"github.com/roach88/kioskfleet/internal/store"
)

// Policy defaults.
const (
	// DefaultActivationTTL is how long a new activation code stays redeemable.
	DefaultActivationTTL = time.Hour

	// DefaultFreshnessWindow is how long a device may stay silent before
	// readers report it offline.
	DefaultFreshnessWindow = 5 * time.Minute

	// DefaultSweepRetention is how long expired, unused codes are kept
	// before Sweep removes them.
	DefaultSweepRetention = 24 * time.Hour

	// maxCodeAttempts bounds re-rolls when a generated code collides.
	maxCodeAttempts = 16
)

// Registry is the activation and fleet-status service.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	store  *store.Store
	clock  Clock
	ids    IDGenerator
	codes  *codegen.Generator
	logger *slog.Logger

	ttl    time.Duration
	window time.Duration

	codeLocks   keylock.Map // normalized code -> critical section
	deviceLocks keylock.Map // device id -> critical section

	statusMu sync.Mutex // orders global status writes with their fanout
	subs     *broadcaster

	// afterClaim runs inside the redemption transaction right after the
	// code was claimed. Tests use it to inject failures.
	afterClaim func() error
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for every timestamp.
func WithClock(c Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithIDGenerator sets the generator for code and device ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) {
		r.ids = g
	}
}

// WithCodeGenerator sets the activation code generator.
func WithCodeGenerator(g *codegen.Generator) Option {
	return func(r *Registry) {
		r.codes = g
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithActivationTTL sets the lifetime of new activation codes.
//
// Default: 1 hour (DefaultActivationTTL)
func WithActivationTTL(d time.Duration) Option {
	return func(r *Registry) {
		r.ttl = d
	}
}

// WithFreshnessWindow sets the silence after which devices read as offline.
//
// Default: 5 minutes (DefaultFreshnessWindow)
func WithFreshnessWindow(d time.Duration) Option {
	return func(r *Registry) {
		r.window = d
	}
}

// New creates a Registry backed by s.
//
// Without options the registry uses the system clock, UUIDv7 ids, 6-character
// codes from crypto/rand and a discarding logger.
func New(s *store.Store, opts ...Option) (*Registry, error) {
	if s == nil {
		return nil, errors.New("registry: nil store")
	}

	r := &Registry{
		store:  s,
		clock:  SystemClock{},
		ids:    UUIDv7Generator{},
		ttl:    DefaultActivationTTL,
		window: DefaultFreshnessWindow,
		subs:   newBroadcaster(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.codes == nil {
		g, err := codegen.New(fleet.DefaultCodeLength)
		if err != nil {
			return nil, err
		}
		r.codes = g
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.ttl <= 0 {
		return nil, fmt.Errorf("registry: activation TTL must be positive, got %s", r.ttl)
	}
	if r.window <= 0 {
		return nil, fmt.Errorf("registry: freshness window must be positive, got %s", r.window)
	}
	return r, nil
}

// ActivationTTL returns the lifetime given to new activation codes.
func (r *Registry) ActivationTTL() time.Duration {
	return r.ttl
}

// FreshnessWindow returns the silence after which devices read as offline.
func (r *Registry) FreshnessWindow() time.Duration {
	return r.window
}

// now returns the clock time at the store's millisecond precision, so
// values handed back to callers equal what a later read returns.
func (r *Registry) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Millisecond)
}

// notFound maps sql.ErrNoRows to a NOT_FOUND error for kind/id and wraps
// anything else with op.
func notFound(err error, op, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.NewNotFoundError(kind, id)
	}
	return wrap(op, err)
}

// wrap adds op context to infrastructure errors. Registry errors pass
// through untouched so their message reaches callers as written.
func wrap(op string, err error) error {
	if err == nil || fleet.CodeOf(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
