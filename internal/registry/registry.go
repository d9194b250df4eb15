package registry

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

// Store is the persistence contract the registry consumes. Load returns
// (nil, nil) when nothing has been persisted yet. Save receives the full
// record set and must not retain the slice after returning.
type Store interface {
	Load(ctx context.Context) ([]*ShortenedURL, error)
	Save(ctx context.Context, records []*ShortenedURL) error
}

// CodeGenerator produces candidate shortcodes.
type CodeGenerator func() string

// Clock supplies the current time. Injected so expiry is deterministic
// under test.
type Clock func() time.Time

const (
	codeAlphabet        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	generatedCodeLength = 6

	// maxGenerateAttempts guards the collision-retry loop. Collisions are
	// negligible at realistic sizes, so hitting this means the generator
	// is broken or the keyspace is effectively full.
	maxGenerateAttempts = 1000
)

var errCodeSpaceExhausted = errors.New("could not generate an unused shortcode")

// Config carries the registry's injected dependencies. Store is required;
// everything else falls back to a sensible default.
type Config struct {
	Store    Store
	Clock    Clock
	Generate CodeGenerator

	// Locale resolves the coarse user location recorded on clicks when
	// the caller's context carries no hint.
	Locale func() string

	Logger *zap.Logger
}

// Registry is the single source of truth for shortened-URL records. All
// operations guard the load-mutate-persist sequence with one mutex, making
// the single-writer assumption of the storage contract explicit.
type Registry struct {
	mu      sync.RWMutex
	records []*ShortenedURL // insertion order, the persisted order
	byCode  map[string]*ShortenedURL

	store    Store
	clock    Clock
	generate CodeGenerator
	locale   func() string
	logger   *zap.Logger
}

// New constructs a registry and performs the one-time load from the
// backing store. A store that is absent or unreadable is not an error:
// the registry starts empty and the failure is only visible in the log.
func New(ctx context.Context, cfg Config) (*Registry, error) {
	if cfg.Store == nil {
		return nil, errors.New("registry: store is required")
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Generate == nil {
		gen, err := nanoid.CustomASCII(codeAlphabet, generatedCodeLength)
		if err != nil {
			return nil, err
		}

		cfg.Generate = gen
	}

	if cfg.Locale == nil {
		cfg.Locale = systemLocale
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := &Registry{
		byCode:   make(map[string]*ShortenedURL),
		store:    cfg.Store,
		clock:    cfg.Clock,
		generate: cfg.Generate,
		locale:   cfg.Locale,
		logger:   cfg.Logger,
	}

	r.load(ctx)

	return r, nil
}

func (r *Registry) load(ctx context.Context) {
	records, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Warn("record store unreadable, starting empty", zap.Error(err))

		return
	}

	now := r.clock()

	for _, rec := range records {
		if rec == nil || rec.ShortCode == "" {
			continue
		}

		if _, dup := r.byCode[rec.ShortCode]; dup {
			r.logger.Warn("dropping duplicate shortcode from store",
				zap.String("shortCode", rec.ShortCode),
			)

			continue
		}

		// ExpiryDate is the source of truth; the stored flag is stale
		// by definition after a reload.
		rec.Expired = now.After(rec.ExpiryDate)

		r.records = append(r.records, rec)
		r.byCode[rec.ShortCode] = rec
	}
}

// ValidateShortcode checks a user-supplied shortcode. Empty input is valid
// and signals that a code should be generated instead.
func (r *Registry) ValidateShortcode(code string) error {
	if code == "" {
		return nil
	}

	if !validCodeFormat(code) {
		return ErrCodeFormat
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, taken := r.byCode[code]; taken {
		return ErrCodeTaken
	}

	return nil
}

// GenerateCode returns a fresh 6-character alphanumeric shortcode that
// does not collide with any stored record.
func (r *Registry) GenerateCode() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.generateLocked()
}

func (r *Registry) generateLocked() (string, error) {
	for range maxGenerateAttempts {
		code := r.generate()
		if _, taken := r.byCode[code]; !taken {
			return code, nil
		}
	}

	return "", errCodeSpaceExhausted
}

// Create validates its inputs in order (URL, shortcode, validity), failing
// fast on the first violation with no state change. On success the record
// is stored under the preferred shortcode, or a generated one when the
// preference is empty, and the full set is persisted before returning.
func (r *Registry) Create(
	ctx context.Context, originalURL string, validityMinutes int, preferredCode string,
) (*ShortenedURL, error) {
	originalURL = strings.TrimSpace(originalURL)

	if err := ValidateURL(originalURL); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if preferredCode != "" {
		if !validCodeFormat(preferredCode) {
			return nil, ErrCodeFormat
		}

		if _, taken := r.byCode[preferredCode]; taken {
			return nil, ErrCodeTaken
		}
	}

	if err := ValidateValidity(validityMinutes); err != nil {
		return nil, err
	}

	code := preferredCode
	if code == "" {
		generated, err := r.generateLocked()
		if err != nil {
			return nil, err
		}

		code = generated
	}

	now := r.clock()
	rec := &ShortenedURL{
		ID:          uuid.NewString(),
		OriginalURL: originalURL,
		ShortCode:   code,
		CreatedAt:   now,
		ExpiryDate:  now.Add(time.Duration(validityMinutes) * time.Minute),
	}

	r.records = append(r.records, rec)
	r.byCode[code] = rec
	r.persistLocked(ctx)

	return rec.clone(), nil
}

// Resolve looks up a live record by shortcode. Records past their expiry
// stay in storage for statistics but are invisible here: they yield
// ErrCodeExpired, which also matches ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, code string) (*ShortenedURL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.resolveLocked(ctx, code)
	if err != nil {
		return nil, err
	}

	return rec.clone(), nil
}

// resolveLocked recomputes the expiry flag from ExpiryDate and persists
// the flag when it flips.
func (r *Registry) resolveLocked(ctx context.Context, code string) (*ShortenedURL, error) {
	rec, ok := r.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}

	expired := r.clock().After(rec.ExpiryDate)
	if rec.Expired != expired {
		rec.Expired = expired
		r.persistLocked(ctx)
	}

	if expired {
		return nil, ErrCodeExpired
	}

	return rec, nil
}

// RecordClick appends a click to a live record and persists it. The click
// timestamp comes from the clock, the source from the caller (typically
// the referrer), and the coarse location from the context hint when
// present, else the configured locale resolver. Absent or expired codes
// fail without appending anything.
func (r *Registry) RecordClick(ctx context.Context, code, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.resolveLocked(ctx, code)
	if err != nil {
		return err
	}

	rec.Clicks = append(rec.Clicks, ClickRecord{
		ID:           uuid.NewString(),
		Timestamp:    r.clock(),
		Source:       source,
		UserLocation: r.locationFrom(ctx),
	})
	r.persistLocked(ctx)

	return nil
}

// Get returns a record by shortcode for the statistics view, expired ones
// included, with the expiry flag freshly recomputed.
func (r *Registry) Get(ctx context.Context, code string) (*ShortenedURL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}

	expired := r.clock().After(rec.ExpiryDate)
	if rec.Expired != expired {
		rec.Expired = expired
		r.persistLocked(ctx)
	}

	return rec.clone(), nil
}

// List returns every record newest-first, after recomputing all expiry
// flags against the current clock and persisting any that changed.
// Without intervening mutations, repeated calls return the same sequence.
func (r *Registry) List(ctx context.Context) []*ShortenedURL {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	changed := false

	for _, rec := range r.records {
		expired := now.After(rec.ExpiryDate)
		if rec.Expired != expired {
			rec.Expired = expired
			changed = true
		}
	}

	if changed {
		r.persistLocked(ctx)
	}

	out := make([]*ShortenedURL, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.clone()
	}

	// Stable keeps insertion order among records created in the same
	// instant, so the ordering is reproducible call over call.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// Delete removes a record and frees its shortcode for reuse. It reports
// whether a record was removed.
func (r *Registry) Delete(ctx context.Context, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCode[code]; !ok {
		return false
	}

	delete(r.byCode, code)

	for i, rec := range r.records {
		if rec.ShortCode == code {
			r.records = append(r.records[:i], r.records[i+1:]...)

			break
		}
	}

	r.persistLocked(ctx)

	return true
}

// Clear removes all records unconditionally.
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
	r.byCode = make(map[string]*ShortenedURL)
	r.persistLocked(ctx)
}

// persistLocked saves the full record set. A save failure is absorbed:
// the in-memory mutation already happened and there is no transaction to
// roll back, so durability may lag memory until the next successful save.
func (r *Registry) persistLocked(ctx context.Context) {
	if err := r.store.Save(ctx, r.records); err != nil {
		r.logger.Error("failed to persist records",
			zap.Int("count", len(r.records)),
			zap.Error(err),
		)
	}
}

func (r *Registry) locationFrom(ctx context.Context) string {
	if loc, ok := UserLocationFromContext(ctx); ok && loc != "" {
		return loc
	}

	return r.locale()
}

type userLocationKey struct{}

// WithUserLocation attaches a coarse locale/timezone hint for clicks
// recorded under this context.
func WithUserLocation(ctx context.Context, location string) context.Context {
	return context.WithValue(ctx, userLocationKey{}, location)
}

// UserLocationFromContext extracts the location hint, if any.
func UserLocationFromContext(ctx context.Context) (string, bool) {
	loc, ok := ctx.Value(userLocationKey{}).(string)

	return loc, ok
}

// systemLocale derives a coarse location from the process environment:
// the TZ variable when set, otherwise the local zone abbreviation.
func systemLocale() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}

	if zone, _ := time.Now().Zone(); zone != "" {
		return zone
	}

	return "UTC"
}
