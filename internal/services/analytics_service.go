package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/google/uuid"
)

const (
	ActivityStageChange  = "stage_change"
	ActivityStatusChange = "status_change"

	DefaultActivityLimit = 20
	MaxActivityLimit     = 200
	DefaultEventLimit    = 100
	MaxEventLimit        = 1000

	recentWindow = 30 * 24 * time.Hour
)

// ActivityEntry is one line of the derived activity feed.
type ActivityEntry struct {
	Type          string    `json:"type"`
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	StageID       int       `json:"stage_id"`
	StageName     string    `json:"stage_name"`
	FromStageID   *int      `json:"from_stage_id,omitempty"`
	FromStageName string    `json:"from_stage_name,omitempty"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

type UserJourney struct {
	Profile  *models.Profile         `json:"profile"`
	Events   []models.AnalyticsEvent `json:"events"`
	Progress []models.StageProgress  `json:"progress"`
}

type DashboardMetrics struct {
	TotalUsers       int64            `json:"total_users"`
	UsersByRole      map[string]int64 `json:"users_by_role"`
	UsersByStatus    map[string]int64 `json:"users_by_status"`
	ProgressByStatus map[string]int64 `json:"progress_by_status"`
	Recent           RecentCounts     `json:"recent_30_days"`
}

type RecentCounts struct {
	NewUsers        int64 `json:"new_users"`
	ProgressUpdates int64 `json:"progress_updates"`
	Events          int64 `json:"events"`
}

type AnalyticsService struct {
	store *repository.Store
	now   func() time.Time
}

func NewAnalyticsService(store *repository.Store) *AnalyticsService {
	return &AnalyticsService{store: store, now: time.Now}
}

// RecentActivity builds the feed from the limit most recent progress rows.
// Each row yields a stage_change entry when the user had an earlier row and a
// status_change entry when it was written after creation.
func (s *AnalyticsService) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	limit = clampLimit(limit, DefaultActivityLimit, MaxActivityLimit)
	rows, err := s.store.Progress.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent progress: %v", ErrUpstream, err)
	}

	emails := map[uuid.UUID]string{}
	stageIDs := map[int]bool{}
	type pair struct {
		row  models.StageProgress
		prev *models.StageProgress
	}
	pairs := make([]pair, 0, len(rows))
	for _, row := range rows {
		if _, ok := emails[row.UUID]; !ok {
			email, err := s.email(ctx, row.UUID)
			if err != nil {
				return nil, err
			}
			emails[row.UUID] = email
		}
		prev, err := s.store.Progress.Previous(ctx, row.UUID, row.CreatedAt)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: previous progress: %v", ErrUpstream, err)
			}
			prev = nil
		}
		stageIDs[row.StageID] = true
		if prev != nil {
			stageIDs[prev.StageID] = true
		}
		pairs = append(pairs, pair{row: row, prev: prev})
	}

	names, err := s.stageNames(ctx, stageIDs)
	if err != nil {
		return nil, err
	}

	feed := make([]ActivityEntry, 0, len(pairs)*2)
	for _, p := range pairs {
		base := ActivityEntry{
			UserID:    p.row.UUID,
			Email:     emails[p.row.UUID],
			StageID:   p.row.StageID,
			StageName: names[p.row.StageID],
			Status:    p.row.Status,
		}
		if p.prev != nil {
			entry := base
			entry.Type = ActivityStageChange
			from := p.prev.StageID
			entry.FromStageID = &from
			entry.FromStageName = names[from]
			entry.Timestamp = p.row.CreatedAt
			feed = append(feed, entry)
		}
		if !p.row.LastUpdatedAt.Equal(p.row.CreatedAt) {
			entry := base
			entry.Type = ActivityStatusChange
			entry.Timestamp = p.row.LastUpdatedAt
			feed = append(feed, entry)
		}
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// email resolves the address from the auth identity, falling back to the
// profile copy.
func (s *AnalyticsService) email(ctx context.Context, id uuid.UUID) (string, error) {
	identity, err := s.store.Identities.GetByID(ctx, id)
	if err == nil {
		return identity.Email, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("%w: load identity: %v", ErrUpstream, err)
	}
	profile, err := s.store.Profiles.Get(ctx, id)
	if err == nil {
		return profile.Email, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	return "", fmt.Errorf("%w: load profile: %v", ErrUpstream, err)
}

func (s *AnalyticsService) stageNames(ctx context.Context, ids map[int]bool) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	list := make([]int, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	stages, err := s.store.Stages.GetByIDs(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("%w: load stages: %v", ErrUpstream, err)
	}
	for _, st := range stages {
		names[st.ID] = st.Name
	}
	return names, nil
}

func (s *AnalyticsService) Query(ctx context.Context, filter repository.EventFilter) ([]models.AnalyticsEvent, error) {
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return nil, validation("end_date is before start_date")
	}
	filter.Limit = clampLimit(filter.Limit, DefaultEventLimit, MaxEventLimit)
	events, err := s.store.Events.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: query events: %v", ErrUpstream, err)
	}
	return events, nil
}

// UserJourney lists a user's events oldest first next to their progress.
func (s *AnalyticsService) UserJourney(ctx context.Context, email string) (*UserJourney, error) {
	if email == "" {
		return nil, validation("email is required")
	}
	profile, err := s.store.Profiles.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: load profile: %v", ErrUpstream, err)
		}
		identity, idErr := s.store.Identities.GetByEmail(ctx, email)
		if idErr != nil {
			return nil, notFoundOr(idErr, "user")
		}
		if profile, err = s.store.Profiles.Get(ctx, identity.ID); err != nil {
			return nil, notFoundOr(err, "profile")
		}
	}

	id := profile.UUID
	events, err := s.store.Events.Query(ctx, repository.EventFilter{UserID: &id, Ascending: true, Limit: MaxEventLimit})
	if err != nil {
		return nil, fmt.Errorf("%w: query events: %v", ErrUpstream, err)
	}
	progress, err := s.store.Progress.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: list progress: %v", ErrUpstream, err)
	}
	return &UserJourney{Profile: profile, Events: events, Progress: progress}, nil
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	byRole, err := s.store.Profiles.CountBy(ctx, "role")
	if err != nil {
		return nil, fmt.Errorf("%w: count roles: %v", ErrUpstream, err)
	}
	byStatus, err := s.store.Profiles.CountBy(ctx, "status")
	if err != nil {
		return nil, fmt.Errorf("%w: count statuses: %v", ErrUpstream, err)
	}
	progress, err := s.store.Progress.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count progress: %v", ErrUpstream, err)
	}

	since := s.now().Add(-recentWindow)
	m := &DashboardMetrics{UsersByRole: byRole, UsersByStatus: byStatus, ProgressByStatus: progress}
	for _, n := range byRole {
		m.TotalUsers += n
	}
	if m.Recent.NewUsers, err = s.store.Profiles.CountCreatedSince(ctx, since); err != nil {
		return nil, fmt.Errorf("%w: count new users: %v", ErrUpstream, err)
	}
	if m.Recent.ProgressUpdates, err = s.store.Progress.CountUpdatedSince(ctx, since); err != nil {
		return nil, fmt.Errorf("%w: count progress updates: %v", ErrUpstream, err)
	}
	if m.Recent.Events, err = s.store.Events.CountSince(ctx, since); err != nil {
		return nil, fmt.Errorf("%w: count events: %v", ErrUpstream, err)
	}
	return m, nil
}

func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
