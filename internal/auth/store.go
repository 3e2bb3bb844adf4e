package auth

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/qprogramming/daily/backend/internal/model"
	"go.uber.org/zap"
)

// validityGuard is subtracted from the access token lifetime so a token
// cannot expire while a provider call is in flight.
const validityGuard = 60 * time.Second

const storeShards = 32

// LoadState classifies the result of CredentialStore.Load.
type LoadState int

const (
	// LoadAbsent means the principal never authorized, or logged out.
	LoadAbsent LoadState = iota
	// LoadValid means the returned credential is usable as-is.
	LoadValid
	// LoadNeedsRefresh means the caller should run the provider's
	// refresh flow before retrying once.
	LoadNeedsRefresh
)

// storeEntry is the per-principal record. The retained refresh token
// outlives the credential it arrived with so expired principals can be
// re-authorized without a new consent screen.
type storeEntry struct {
	cred         *model.Credential
	refreshToken string
}

type storeShard struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
}

// CredentialStore holds one authorized credential per principal. It
// performs no network I/O; expiry is reported through the three-way
// Load result and the refresh exchange itself is the caller's job.
//
// Entries live behind sharded locks so operations on different
// principals never contend, while operations on the same principal are
// linearized by its shard mutex.
type CredentialStore struct {
	shards [storeShards]*storeShard
	now    func() time.Time
	logger *zap.Logger
}

// NewCredentialStore creates an empty store.
func NewCredentialStore(logger *zap.Logger) *CredentialStore {
	return newStoreWithClock(logger, time.Now)
}

func newStoreWithClock(logger *zap.Logger, now func() time.Time) *CredentialStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CredentialStore{now: now, logger: logger}
	for i := range s.shards {
		s.shards[i] = &storeShard{entries: make(map[string]*storeEntry)}
	}
	return s
}

func (s *CredentialStore) shardFor(principal string) *storeShard {
	h := fnv.New32a()
	h.Write([]byte(principal))
	return s.shards[h.Sum32()%storeShards]
}

// Save replaces any stored credential for the principal. A refresh
// token carried by the credential is retained for future refresh
// attempts; saving a credential without one keeps the previously
// retained refresh token.
func (s *CredentialStore) Save(principal string, cred model.Credential) {
	sh := s.shardFor(principal)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[principal]
	if !ok {
		e = &storeEntry{}
		sh.entries[principal] = e
	}
	c := cred
	e.cred = &c
	if cred.RefreshToken != "" {
		s.logger.Debug("retaining refresh token", zap.String("principal", principal))
		e.refreshToken = cred.RefreshToken
	}
	s.logger.Debug("saved credential",
		zap.String("principal", principal),
		zap.Time("expiry", cred.Expiry),
	)
}

// Load returns the stored credential when it is still valid. An expired
// credential, or a missing one with a retained refresh token, reports
// LoadNeedsRefresh. Only a principal with no record at all is absent.
func (s *CredentialStore) Load(principal string) (model.Credential, LoadState) {
	sh := s.shardFor(principal)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[principal]
	if !ok {
		return model.Credential{}, LoadAbsent
	}
	if e.cred == nil {
		if e.refreshToken == "" {
			return model.Credential{}, LoadAbsent
		}
		s.logger.Debug("no credential but refresh token retained", zap.String("principal", principal))
		return model.Credential{}, LoadNeedsRefresh
	}
	if !s.isValid(e.cred) {
		s.logger.Debug("credential expired", zap.String("principal", principal))
		return model.Credential{}, LoadNeedsRefresh
	}
	return *e.cred, LoadValid
}

// Remove deletes the credential and the retained refresh token.
// Removing an unknown principal is a no-op.
func (s *CredentialStore) Remove(principal string) {
	sh := s.shardFor(principal)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.entries, principal)
	s.logger.Debug("removed credential", zap.String("principal", principal))
}

// HasRefreshCapability reports whether a refresh token is retained for
// the principal, regardless of access token validity.
func (s *CredentialStore) HasRefreshCapability(principal string) bool {
	_, ok := s.retainedRefreshToken(principal)
	return ok
}

// retainedRefreshToken returns the (encrypted) refresh token kept for
// the principal, used by the refresh branch of the credential flow.
func (s *CredentialStore) retainedRefreshToken(principal string) (string, bool) {
	sh := s.shardFor(principal)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[principal]
	if !ok || e.refreshToken == "" {
		return "", false
	}
	return e.refreshToken, true
}

// isValid applies the guard-band rule: a credential is usable only when
// its expiry is known and strictly later than now plus the guard.
func (s *CredentialStore) isValid(cred *model.Credential) bool {
	if cred == nil || cred.Expiry.IsZero() {
		return false
	}
	return cred.Expiry.After(s.now().Add(validityGuard))
}
