// Package memory is an in-process implementation of the repository
// contracts. It backs STORAGE_MODE=memory and the test suites.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type progressKey struct {
	id      uuid.UUID
	stageID int
}

// DB holds every table behind a single lock.
type DB struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]models.Identity
	tokens     map[string]models.RefreshToken
	profiles   map[uuid.UUID]models.Profile
	stages     map[int]models.Stage
	workflows  map[string]models.Workflow
	flows      map[string]models.Flow
	progress   map[progressKey]models.StageProgress
	notes      map[uuid.UUID]models.ProfileNote
	events     []models.AnalyticsEvent
	now        func() time.Time
}

func New() *DB {
	return &DB{
		identities: make(map[uuid.UUID]models.Identity),
		tokens:     make(map[string]models.RefreshToken),
		profiles:   make(map[uuid.UUID]models.Profile),
		stages:     make(map[int]models.Stage),
		workflows:  make(map[string]models.Workflow),
		flows:      make(map[string]models.Flow),
		progress:   make(map[progressKey]models.StageProgress),
		notes:      make(map[uuid.UUID]models.ProfileNote),
		now:        time.Now,
	}
}

// NewStore returns a repository.Store backed by a fresh DB.
func NewStore() (*repository.Store, *DB) {
	db := New()
	return db.Store(), db
}

func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Identities:    identities{db},
		RefreshTokens: refreshTokens{db},
		Profiles:      profiles{db},
		Stages:        stages{db},
		Workflows:     workflows{db},
		Flows:         flows{db},
		Progress:      progress{db},
		Notes:         notes{db},
		Events:        events{db},
	}
}

// SetClock overrides the time source used for default timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

func cloneJSON(j datatypes.JSON) datatypes.JSON {
	if j == nil {
		return nil
	}
	out := make(datatypes.JSON, len(j))
	copy(out, j)
	return out
}

// Identities

type identities struct{ db *DB }

func (r identities) Create(_ context.Context, identity *models.Identity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.identities {
		if strings.EqualFold(existing.Email, identity.Email) {
			return repository.ErrDuplicate
		}
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if _, ok := r.db.identities[identity.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.db.now()
	identity.CreatedAt, identity.UpdatedAt = now, now
	r.db.identities[identity.ID] = *identity
	return nil
}

func (r identities) GetByID(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	identity, ok := r.db.identities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &identity, nil
}

func (r identities) GetByEmail(_ context.Context, email string) (*models.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, identity := range r.db.identities {
		if identity.Email == email {
			out := identity
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r identities) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for hash, token := range r.db.tokens {
		if token.IdentityID == id {
			delete(r.db.tokens, hash)
		}
	}
	delete(r.db.identities, id)
	return nil
}

// Refresh tokens

type refreshTokens struct{ db *DB }

func (r refreshTokens) Create(_ context.Context, token *models.RefreshToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tokens[token.TokenHash]; ok {
		return repository.ErrDuplicate
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = r.db.now()
	r.db.tokens[token.TokenHash] = *token
	return nil
}

func (r refreshTokens) GetActiveByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	token, ok := r.db.tokens[hash]
	if !ok || token.Revoked {
		return nil, repository.ErrNotFound
	}
	return &token, nil
}

func (r refreshTokens) Revoke(_ context.Context, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if token, ok := r.db.tokens[hash]; ok {
		token.Revoked = true
		r.db.tokens[hash] = token
	}
	return nil
}

func (r refreshTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for hash, token := range r.db.tokens {
		if token.Revoked || token.ExpiresAt.Before(before) {
			delete(r.db.tokens, hash)
			n++
		}
	}
	return n, nil
}

// Profiles

type profiles struct{ db *DB }

func (r profiles) Create(_ context.Context, profile *models.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.profiles[profile.UUID]; ok {
		return repository.ErrDuplicate
	}
	now := r.db.now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if profile.Status == "" {
		profile.Status = models.ProfileStatusNotStarted
	}
	if profile.Data == nil {
		profile.Data = datatypes.JSON("{}")
	}
	stored := *profile
	stored.Data = cloneJSON(profile.Data)
	r.db.profiles[profile.UUID] = stored
	return nil
}

func (r profiles) Get(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	profile, ok := r.db.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	profile.Data = cloneJSON(profile.Data)
	return &profile, nil
}

func (r profiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, profile := range r.db.profiles {
		if profile.Email == email {
			profile.Data = cloneJSON(profile.Data)
			return &profile, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r profiles) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	profile, ok := r.db.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for column, value := range fields {
		switch column {
		case "email":
			profile.Email = value.(string)
		case "role":
			profile.Role = value.(string)
		case "status":
			profile.Status = value.(string)
		case "data":
			profile.Data = cloneJSON(value.(datatypes.JSON))
		default:
			return nil, fmt.Errorf("memory: unknown profile column %q", column)
		}
	}
	profile.UpdatedAt = r.db.now()
	r.db.profiles[id] = profile
	out := profile
	out.Data = cloneJSON(profile.Data)
	return &out, nil
}

func (r profiles) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.profiles, id)
	return nil
}

func (r profiles) List(_ context.Context, filter repository.ProfileFilter) ([]models.Profile, int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	statuses := make(map[string]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = true
	}
	matched := make([]models.Profile, 0)
	for _, profile := range r.db.profiles {
		if filter.Role != "" && profile.Role != filter.Role {
			continue
		}
		if filter.ExcludeRole != "" && profile.Role == filter.ExcludeRole {
			continue
		}
		if len(statuses) > 0 && !statuses[profile.Status] {
			continue
		}
		profile.Data = cloneJSON(profile.Data)
		matched = append(matched, profile)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	return paginate(matched, filter.Offset, filter.Limit), total, nil
}

func (r profiles) CountBy(_ context.Context, column string) (map[string]int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	counts := make(map[string]int64)
	for _, profile := range r.db.profiles {
		switch column {
		case "role":
			counts[profile.Role]++
		case "status":
			counts[profile.Status]++
		default:
			return nil, fmt.Errorf("cannot group profiles by %q", column)
		}
	}
	return counts, nil
}

func (r profiles) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, profile := range r.db.profiles {
		if !profile.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
