package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notes

type notes struct{ db *DB }

func (r notes) Get(_ context.Context, profileID uuid.UUID) (*models.ProfileNote, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	n, ok := r.db.notes[profileID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (r notes) Create(_ context.Context, note *models.ProfileNote) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.notes[note.ProfileUUID]; ok {
		return repository.ErrDuplicate
	}
	now := r.db.now()
	note.CreatedAt, note.UpdatedAt = now, now
	r.db.notes[note.ProfileUUID] = *note
	return nil
}

func (r notes) Update(_ context.Context, profileID uuid.UUID, text string) (*models.ProfileNote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notes[profileID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	n.Note = text
	n.UpdatedAt = r.db.now()
	r.db.notes[profileID] = n
	return &n, nil
}

func (r notes) DeleteByProfile(_ context.Context, profileID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.notes, profileID)
	return nil
}

// Events

type events struct{ db *DB }

func (r events) CreateBatch(_ context.Context, batch []models.AnalyticsEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range batch {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = r.db.now()
		}
		e.EventData = cloneJSON(e.EventData)
		if e.EventData == nil {
			e.EventData = datatypes.JSON("{}")
		}
		r.db.events = append(r.db.events, e)
	}
	return nil
}

func (r events) Query(_ context.Context, filter repository.EventFilter) ([]models.AnalyticsEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []models.AnalyticsEvent{}
	for _, e := range r.db.events {
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.UserID != nil && (e.UserID == nil || *e.UserID != *filter.UserID) {
			continue
		}
		if filter.Start != nil && e.CreatedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && e.CreatedAt.After(*filter.End) {
			continue
		}
		e.EventData = cloneJSON(e.EventData)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, 0, filter.Limit), nil
}

func (r events) DeleteByUser(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.events[:0]
	for _, e := range r.db.events {
		if e.UserID != nil && *e.UserID == id {
			continue
		}
		kept = append(kept, e)
	}
	r.db.events = kept
	return nil
}

func (r events) CountSince(_ context.Context, since time.Time) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, e := range r.db.events {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
