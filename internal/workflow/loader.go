package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"gopkg.in/yaml.v3"
)

// FileStage is a node as written in the workflows file, carrying the stage
// metadata that lands in the stage table.
type FileStage struct {
	Node  `yaml:",inline"`
	Index int    `yaml:"index"`
	Flow  string `yaml:"flow"`
}

// File is the on-disk workflows document, keyed by role.
type File struct {
	Workflows map[string][]FileStage `yaml:"workflows"`
}

// LoadFromFile parses and validates a workflows file.
func LoadFromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workflows file: %w", err)
	}
	for _, def := range file.Definitions() {
		if err := def.Validate(); err != nil {
			return nil, err
		}
	}
	return &file, nil
}

// Definitions returns the graphs sorted by role.
func (f *File) Definitions() []Definition {
	roles := make([]string, 0, len(f.Workflows))
	for role := range f.Workflows {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	defs := make([]Definition, 0, len(roles))
	for _, role := range roles {
		def := Definition{Role: role}
		for _, s := range f.Workflows[role] {
			def.Nodes = append(def.Nodes, s.Node)
		}
		defs = append(defs, def)
	}
	return defs
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Workflows int
	Stages    int
	Skipped   []string
}

// Seed writes the file's graphs and stage metadata. Roles that already have
// a stored graph are skipped unless overwrite is set.
func (s *Store) Seed(ctx context.Context, file *File, overwrite bool) (SeedResult, error) {
	var result SeedResult
	for _, def := range file.Definitions() {
		if !overwrite {
			_, err := s.workflows.Get(ctx, def.Role)
			if err == nil {
				result.Skipped = append(result.Skipped, def.Role)
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return result, err
			}
		}
		for _, fs := range file.Workflows[def.Role] {
			stage := &models.Stage{
				ID:                   fs.ID,
				Role:                 def.Role,
				Name:                 fs.Name,
				OnboardingStageIndex: fs.Index,
				FlowName:             fs.Flow,
			}
			if err := s.stages.Save(ctx, stage); err != nil {
				return result, fmt.Errorf("seed stage %d: %w", fs.ID, err)
			}
			result.Stages++
		}
		if err := s.Save(ctx, def); err != nil {
			return result, fmt.Errorf("seed workflow %s: %w", def.Role, err)
		}
		result.Workflows++
	}
	return result, nil
}
