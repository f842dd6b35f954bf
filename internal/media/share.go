package media

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrStoreUnavailable reports a share operation in a deployment without a
// configured durable store. Handlers map it to service-unavailable; it is
// never retried.
var ErrStoreUnavailable = errors.New("share store not configured")

// Share is one issued public link. Rows are append-only: after creation
// the only mutation ever applied is setting RevokedAt, exactly once.
type Share struct {
	Token     string
	FilePath  string // verbatim client-supplied relative path
	CreatedAt time.Time
	ExpiresAt *time.Time // nil means the share never expires
	RevokedAt *time.Time
}

// ActiveAt reports whether the share grants access at the given instant.
// Evaluate against a fresh clock on every use; activity is never cached.
func (s *Share) ActiveAt(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	if s.ExpiresAt == nil {
		return true
	}
	return s.ExpiresAt.After(now)
}

// ShareStore is the durable token registry. Rows are never deleted;
// revocation is a guarded soft update.
type ShareStore interface {
	// CreateShare persists a new share for filePath with a fresh token.
	// A nil ttl means the share never expires. CreateShare does not check
	// for an existing active share; callers wanting dedup must look first,
	// and concurrent creates for one path may both succeed.
	CreateShare(filePath string, ttl *time.Duration) (*Share, error)

	// GetByToken returns the share with this token, or nil when absent.
	GetByToken(token string) (*Share, error)

	// GetActiveByFilePath returns the most recently created active share
	// whose stored path is byte-identical to filePath, or nil. Different
	// spellings of one file are not deduplicated against each other.
	GetActiveByFilePath(filePath string) (*Share, error)

	// Revoke stamps revoked_at, only if it is still unset, and reports
	// whether a change occurred. Repeated calls after the first return
	// false. Revoking an already-expired share still succeeds.
	Revoke(token string) (bool, error)

	// ListShares returns the most recently created shares, newest first,
	// regardless of state. A non-positive limit yields no shares.
	ListShares(limit int) ([]*Share, error)

	// Close closes the underlying storage.
	Close() error
}

// ExpiryChoice is the client's expiry selection from the share form.
type ExpiryChoice struct {
	Choice string // "never", "default", or "custom"
	Value  string // numeric, custom only
	Unit   string // "hours" or "days", custom only
}

// ShareService ties the resolver, store and clock together and implements
// the share protocols on top of the raw store.
type ShareService struct {
	store      ShareStore // nil when sharing is disabled
	resolver   *PathResolver
	clock      Clock
	defaultTTL time.Duration
	log        Logger
}

// NewShareService creates a ShareService. store may be nil for deployments
// without sharing; every share operation then fails with
// ErrStoreUnavailable. A nil clock selects the real clock.
func NewShareService(store ShareStore, resolver *PathResolver, clock Clock, defaultTTL time.Duration, log Logger) *ShareService {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = NewNopLogger()
	}
	return &ShareService{
		store:      store,
		resolver:   resolver,
		clock:      clock,
		defaultTTL: defaultTTL,
		log:        log,
	}
}

// Available reports whether a durable store is configured.
func (s *ShareService) Available() bool { return s.store != nil }

// DefaultTTL returns the configured default time-to-live.
func (s *ShareService) DefaultTTL() time.Duration { return s.defaultTTL }

// ParseExpiry converts a form expiry choice into a TTL. nil means the
// share never expires. An unrecognized choice, a non-numeric or
// non-positive custom value, and an unknown unit all silently fall back
// to the configured default TTL rather than being rejected.
func (s *ShareService) ParseExpiry(choice ExpiryChoice) *time.Duration {
	switch choice.Choice {
	case "never":
		return nil
	case "custom":
		n, err := strconv.ParseInt(choice.Value, 10, 64)
		if err != nil || n <= 0 {
			break
		}
		switch choice.Unit {
		case "hours":
			d := time.Duration(n) * time.Hour
			return &d
		case "days":
			d := time.Duration(n) * 24 * time.Hour
			return &d
		}
	}
	d := s.defaultTTL
	return &d
}

// CreateOrReuse implements share creation with dedup: the path must
// resolve to a file inside the root before the store is touched; an
// existing active share for the verbatim path string is returned
// unchanged; otherwise a new share is created with the parsed expiry.
// The reused result reports which case occurred. The check-then-create
// sequence is not atomic, so concurrent identical requests can both
// create a share; both tokens are then valid.
func (s *ShareService) CreateOrReuse(filePath string, choice ExpiryChoice) (share *Share, reused bool, err error) {
	if s.store == nil {
		return nil, false, ErrStoreUnavailable
	}
	if _, err := s.resolver.Resolve(filePath, ResolveOpts{MustBeFile: true}); err != nil {
		return nil, false, err
	}
	existing, err := s.store.GetActiveByFilePath(filePath)
	if err != nil {
		return nil, false, fmt.Errorf("checking for existing share: %w", err)
	}
	if existing != nil {
		return existing, true, nil
	}
	created, err := s.store.CreateShare(filePath, s.ParseExpiry(choice))
	if err != nil {
		return nil, false, fmt.Errorf("creating share: %w", err)
	}
	s.log.Info("share created", "path", filePath, "never_expires", created.ExpiresAt == nil)
	return created, false, nil
}

// IsActive evaluates the share against the current clock.
func (s *ShareService) IsActive(share *Share) bool {
	return share.ActiveAt(s.clock.Now())
}

// GetByToken returns the share for a token regardless of its state, or
// nil when absent.
func (s *ShareService) GetByToken(token string) (*Share, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	return s.store.GetByToken(token)
}

// ResolveToken implements public token resolution. An absent token, an
// expired or revoked share, and a share whose file has since moved or
// disappeared all collapse into ErrPathNotFound, so callers cannot probe
// token state. Without a store every token is simply absent; the same
// not-found result applies so the route does not reveal whether sharing
// is configured. On success the stored relative path has been re-resolved
// against the current root with a file requirement; the returned absolute
// path is safe to serve.
func (s *ShareService) ResolveToken(token string) (*Share, string, error) {
	if s.store == nil {
		return nil, "", ErrPathNotFound
	}
	share, err := s.store.GetByToken(token)
	if err != nil {
		return nil, "", fmt.Errorf("looking up token: %w", err)
	}
	if share == nil {
		return nil, "", ErrPathNotFound
	}
	if !share.ActiveAt(s.clock.Now()) {
		s.log.Debug("inactive token rejected", "revoked", share.RevokedAt != nil)
		return nil, "", ErrPathNotFound
	}
	abs, err := s.resolver.Resolve(share.FilePath, ResolveOpts{MustBeFile: true})
	if err != nil {
		s.log.Debug("shared file no longer resolvable", "path", share.FilePath)
		return nil, "", ErrPathNotFound
	}
	return share, abs, nil
}

// Revoke stamps the share revoked and reports whether this call was the
// one that did it.
func (s *ShareService) Revoke(token string) (bool, error) {
	if s.store == nil {
		return false, ErrStoreUnavailable
	}
	changed, err := s.store.Revoke(token)
	if err != nil {
		return false, err
	}
	if changed {
		s.log.Info("share revoked", "token", token)
	}
	return changed, nil
}

// ListShares returns the most recent shares, newest first.
func (s *ShareService) ListShares(limit int) ([]*Share, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	return s.store.ListShares(limit)
}
