package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testWorkflows = `workflows:
  seller:
    - id: 1
      name: Company Profile
      index: 0
      flow: seller_company
      next: [2, 3]
    - id: 2
      name: Product Catalog
      index: 1
      next: [4]
    - id: 3
      name: Compliance
      index: 2
      next: [4]
    - id: 4
      name: Review
      index: 3
  buyer:
    - id: 11
      name: Buyer Profile
      index: 0
`

// clock hands out strictly increasing timestamps.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// eventLog is a synchronous EventSink.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) Record(_ *uuid.UUID, eventType string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, eventType)
}

func (l *eventLog) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fixture struct {
	ctx       context.Context
	store     *repository.Store
	db        *memory.DB
	clock     *clock
	events    *eventLog
	workflows *workflow.Store
	progress  *ProgressService
	admin     *AdminService
	analytics *AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, db := memory.NewStore()
	clk := newClock()
	db.SetClock(clk.Now)

	wf := workflow.NewStore(store.Workflows, store.Stages)
	file, err := workflow.Parse([]byte(testWorkflows))
	require.NoError(t, err)
	_, err = wf.Seed(context.Background(), file, false)
	require.NoError(t, err)

	events := &eventLog{}
	progress := NewProgressService(store, wf, events)
	progress.now = clk.Now
	analytics := NewAnalyticsService(store)
	analytics.now = clk.Now

	return &fixture{
		ctx:       context.Background(),
		store:     store,
		db:        db,
		clock:     clk,
		events:    events,
		workflows: wf,
		progress:  progress,
		admin:     NewAdminService(store, progress, wf, events),
		analytics: analytics,
	}
}

// user creates an identity and profile with the given role.
func (f *fixture) user(t *testing.T, email, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.store.Identities.Create(f.ctx, &models.Identity{ID: id, Email: email, Password: "x"}))
	require.NoError(t, f.store.Profiles.Create(f.ctx, &models.Profile{
		UUID:   id,
		Email:  email,
		Role:   role,
		Status: models.ProfileStatusNotStarted,
	}))
	return id
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
}
