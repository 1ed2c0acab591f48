// Package workflow holds each role's directed graph of onboarding stages and
// answers the one question the tracker needs from it: which stages are
// reachable from here.
package workflow

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
)

// notFound errors match repository.ErrNotFound under errors.Is.
type notFound string

func (e notFound) Error() string { return string(e) }

func (e notFound) Is(target error) bool { return target == repository.ErrNotFound }

var (
	ErrNoWorkflow         error = notFound("no workflow for role")
	ErrStageNotInWorkflow error = notFound("stage not in workflow")
	ErrInvalidWorkflow          = errors.New("invalid workflow")
)

// Node is one stage in a role's graph. An empty Next marks a terminal stage.
type Node struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Next []int  `json:"next,omitempty" yaml:"next,omitempty"`
}

// Definition is a role's complete graph.
type Definition struct {
	Role  string `json:"role"`
	Nodes []Node `json:"stages"`
}

// Node returns the node with the given id.
func (d *Definition) Node(id int) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Validate enforces unique ids and that every edge targets a node of the
// same workflow.
func (d *Definition) Validate() error {
	if d.Role == "" {
		return fmt.Errorf("%w: role is required", ErrInvalidWorkflow)
	}
	if len(d.Nodes) == 0 {
		return fmt.Errorf("%w: %s has no stages", ErrInvalidWorkflow, d.Role)
	}
	ids := make(map[int]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if ids[n.ID] {
			return fmt.Errorf("%w: duplicate stage id %d in %s", ErrInvalidWorkflow, n.ID, d.Role)
		}
		if n.Name == "" {
			return fmt.Errorf("%w: stage %d in %s has no name", ErrInvalidWorkflow, n.ID, d.Role)
		}
		ids[n.ID] = true
	}
	for _, n := range d.Nodes {
		for _, next := range n.Next {
			if !ids[next] {
				return fmt.Errorf("%w: stage %d in %s points at unknown stage %d", ErrInvalidWorkflow, n.ID, d.Role, next)
			}
		}
	}
	return nil
}

// Entries lists the ids no edge points at, in declaration order.
func (d *Definition) Entries() []int {
	targeted := make(map[int]bool)
	for _, n := range d.Nodes {
		for _, next := range n.Next {
			targeted[next] = true
		}
	}
	var entries []int
	for _, n := range d.Nodes {
		if !targeted[n.ID] {
			entries = append(entries, n.ID)
		}
	}
	return entries
}

// StageIDs lists every node id in declaration order.
func (d *Definition) StageIDs() []int {
	ids := make([]int, len(d.Nodes))
	for i, n := range d.Nodes {
		ids[i] = n.ID
	}
	return ids
}
