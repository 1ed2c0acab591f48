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

// Stages

type stages struct{ db *DB }

func (r stages) List(_ context.Context) ([]models.Stage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Stage, 0, len(r.db.stages))
	for _, s := range r.db.stages {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].OnboardingStageIndex < out[j].OnboardingStageIndex
	})
	return out, nil
}

func (r stages) Get(_ context.Context, id int) (*models.Stage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.stages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r stages) GetByIDs(_ context.Context, ids []int) ([]models.Stage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Stage, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if s, ok := r.db.stages[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, s)
		}
	}
	return out, nil
}

func (r stages) Create(_ context.Context, stage *models.Stage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.stages[stage.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.db.now()
	stage.CreatedAt, stage.UpdatedAt = now, now
	r.db.stages[stage.ID] = *stage
	return nil
}

func (r stages) Save(_ context.Context, stage *models.Stage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	if existing, ok := r.db.stages[stage.ID]; ok {
		stage.CreatedAt = existing.CreatedAt
	} else {
		stage.CreatedAt = now
	}
	stage.UpdatedAt = now
	r.db.stages[stage.ID] = *stage
	return nil
}

// Workflows

type workflows struct{ db *DB }

func (r workflows) Get(_ context.Context, role string) (*models.Workflow, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	wf, ok := r.db.workflows[role]
	if !ok {
		return nil, repository.ErrNotFound
	}
	wf.Nodes = cloneJSON(wf.Nodes)
	return &wf, nil
}

func (r workflows) List(_ context.Context) ([]models.Workflow, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Workflow, 0, len(r.db.workflows))
	for _, wf := range r.db.workflows {
		wf.Nodes = cloneJSON(wf.Nodes)
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

func (r workflows) Save(_ context.Context, workflow *models.Workflow) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	if existing, ok := r.db.workflows[workflow.Role]; ok {
		workflow.CreatedAt = existing.CreatedAt
	} else {
		workflow.CreatedAt = now
	}
	workflow.UpdatedAt = now
	stored := *workflow
	stored.Nodes = cloneJSON(workflow.Nodes)
	r.db.workflows[workflow.Role] = stored
	return nil
}

// Flows

type flows struct{ db *DB }

func (r flows) ListNames(_ context.Context) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	names := make([]string, 0, len(r.db.flows))
	for name := range r.db.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r flows) Get(_ context.Context, name string) (*models.Flow, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	f, ok := r.db.flows[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.Sections = cloneJSON(f.Sections)
	return &f, nil
}

func (r flows) Create(_ context.Context, flow *models.Flow) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.flows[flow.FlowName]; ok {
		return repository.ErrDuplicate
	}
	now := r.db.now()
	flow.CreatedAt, flow.UpdatedAt = now, now
	if flow.Sections == nil {
		flow.Sections = datatypes.JSON("[]")
	}
	stored := *flow
	stored.Sections = cloneJSON(flow.Sections)
	r.db.flows[flow.FlowName] = stored
	return nil
}

func (r flows) Save(_ context.Context, flow *models.Flow) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	if existing, ok := r.db.flows[flow.FlowName]; ok {
		flow.CreatedAt = existing.CreatedAt
	} else {
		flow.CreatedAt = now
	}
	flow.UpdatedAt = now
	stored := *flow
	stored.Sections = cloneJSON(flow.Sections)
	r.db.flows[flow.FlowName] = stored
	return nil
}

func (r flows) Delete(_ context.Context, name string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.flows[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.flows, name)
	return nil
}

// Progress

type progress struct{ db *DB }

func copyProgress(p models.StageProgress) models.StageProgress {
	p.Data = cloneJSON(p.Data)
	return p
}

func sortNewestFirst(rows []models.StageProgress) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

func (r progress) ListByUser(_ context.Context, id uuid.UUID) ([]models.StageProgress, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	rows := []models.StageProgress{}
	for key, p := range r.db.progress {
		if key.id == id {
			rows = append(rows, copyProgress(p))
		}
	}
	sortNewestFirst(rows)
	return rows, nil
}

func (r progress) Get(_ context.Context, id uuid.UUID, stageID int) (*models.StageProgress, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.progress[progressKey{id, stageID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyProgress(p)
	return &out, nil
}

func (r progress) Create(_ context.Context, p *models.StageProgress) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := progressKey{p.UUID, p.StageID}
	if _, ok := r.db.progress[key]; ok {
		return repository.ErrDuplicate
	}
	r.fillTimestamps(p)
	r.db.progress[key] = copyProgress(*p)
	return nil
}

func (r progress) fillTimestamps(p *models.StageProgress) {
	now := r.db.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.LastUpdatedAt.IsZero() {
		p.LastUpdatedAt = p.CreatedAt
	}
	if p.Data == nil {
		p.Data = datatypes.JSON("{}")
	}
}

func (r progress) Update(_ context.Context, id uuid.UUID, stageID int, fields map[string]interface{}) (*models.StageProgress, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := progressKey{id, stageID}
	p, ok := r.db.progress[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for column, value := range fields {
		switch column {
		case "status":
			p.Status = value.(string)
		case "data":
			p.Data = cloneJSON(value.(datatypes.JSON))
		case "last_updated_at":
			p.LastUpdatedAt = value.(time.Time)
		}
	}
	r.db.progress[key] = p
	out := copyProgress(p)
	return &out, nil
}

func (r progress) UpsertStatus(_ context.Context, p *models.StageProgress) (*models.StageProgress, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := progressKey{p.UUID, p.StageID}
	if existing, ok := r.db.progress[key]; ok {
		existing.Status = p.Status
		existing.LastUpdatedAt = p.LastUpdatedAt
		r.db.progress[key] = existing
		out := copyProgress(existing)
		return &out, nil
	}
	r.fillTimestamps(p)
	r.db.progress[key] = copyProgress(*p)
	out := copyProgress(*p)
	return &out, nil
}

func (r progress) ListRecent(_ context.Context, limit int) ([]models.StageProgress, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	rows := make([]models.StageProgress, 0, len(r.db.progress))
	for _, p := range r.db.progress {
		rows = append(rows, copyProgress(p))
	}
	sortNewestFirst(rows)
	return paginate(rows, 0, limit), nil
}

func (r progress) Previous(_ context.Context, id uuid.UUID, before time.Time) (*models.StageProgress, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var best *models.StageProgress
	for key, p := range r.db.progress {
		if key.id != id || !p.CreatedAt.Before(before) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			candidate := copyProgress(p)
			best = &candidate
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r progress) DeleteByUser(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for key := range r.db.progress {
		if key.id == id {
			delete(r.db.progress, key)
		}
	}
	return nil
}

func (r progress) CountUpdatedSince(_ context.Context, since time.Time) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, p := range r.db.progress {
		if !p.LastUpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r progress) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	counts := make(map[string]int64)
	for _, p := range r.db.progress {
		counts[p.Status]++
	}
	return counts, nil
}
