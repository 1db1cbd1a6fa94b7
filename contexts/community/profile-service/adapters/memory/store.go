package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"zerosum/contexts/community/profile-service/domain/entities"
	domainerrors "zerosum/contexts/community/profile-service/domain/errors"
	"zerosum/contexts/community/profile-service/ports"
)

// Store is the in-memory profile backend used by unit tests and local runs.
// It doubles as the wagering ledger so settlements apply balance deltas to
// the same profiles the aggregator updates.
type Store struct {
	mu            sync.RWMutex
	profiles      map[string]entities.UserProfile
	providerIndex map[string]string
	dedup         map[string]string
}

func NewStore() *Store {
	return &Store{
		profiles:      make(map[string]entities.UserProfile),
		providerIndex: make(map[string]string),
		dedup:         make(map[string]string),
	}
}

func (s *Store) GetProfile(_ context.Context, userID string) (entities.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return entities.UserProfile{}, domainerrors.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Store) CreateProfile(_ context.Context, profile entities.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[profile.UserID]; exists {
		return domainerrors.ErrConflict
	}
	s.profiles[profile.UserID] = profile
	if profile.Provider != "" {
		s.providerIndex[providerKey(profile.Provider, profile.ProviderUserID)] = profile.UserID
	}
	return nil
}

func (s *Store) SaveProfile(_ context.Context, profile entities.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.profiles[profile.UserID]
	if !ok {
		return domainerrors.ErrProfileNotFound
	}
	if stored.Version != profile.Version {
		return domainerrors.ErrConflict
	}
	profile.Version++
	// Balance belongs to the ledger path, not to stat updates.
	profile.Balance = stored.Balance
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *Store) GetByProvider(_ context.Context, provider string, providerUserID string) (entities.UserProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.providerIndex[providerKey(provider, providerUserID)]
	if !ok {
		return entities.UserProfile{}, false, nil
	}
	return s.profiles[userID], true, nil
}

func (s *Store) ListEligible(_ context.Context, minResolved int) ([]entities.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eligible := make([]entities.UserProfile, 0)
	for _, profile := range s.profiles {
		if profile.GamesResolved >= minResolved {
			eligible = append(eligible, profile)
		}
	}
	return eligible, nil
}

// ApplyBalanceDelta implements the wagering ledger port. Unknown users get a
// skeleton profile so settlement never drops money on the floor.
func (s *Store) ApplyBalanceDelta(_ context.Context, userID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		profile = entities.UserProfile{UserID: userID, Balance: entities.StartingBalance}
	}
	profile.Balance += delta
	s.profiles[userID] = profile
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.dedup[eventID]; seen {
		return true, nil
	}
	s.dedup[eventID] = payloadHash
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Seed inserts a profile directly, bypassing version checks. Test helper.
func (s *Store) Seed(profile entities.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	if profile.Provider != "" {
		s.providerIndex[providerKey(profile.Provider, profile.ProviderUserID)] = profile.UserID
	}
}

func providerKey(provider string, providerUserID string) string {
	return provider + "/" + providerUserID
}

var (
	_ ports.ProfileRepository = (*Store)(nil)
	_ ports.EventDedupStore   = (*Store)(nil)
	_ ports.Clock             = (*Store)(nil)
	_ ports.IDGenerator       = (*Store)(nil)
)
