package workflow

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `
workflows:
  seller:
    - id: 1
      name: Profile
      index: 0
      flow: seller_profile
      next: [2, 3]
    - id: 2
      name: Catalog
      index: 2
    - id: 3
      name: Compliance
      index: 1
  buyer:
    - id: 11
      name: Buyer
      index: 0
`

func TestParse(t *testing.T) {
	file, err := Parse([]byte(sampleFile))
	require.NoError(t, err)

	defs := file.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "buyer", defs[0].Role)
	assert.Equal(t, "seller", defs[1].Role)
	assert.Equal(t, []int{2, 3}, defs[1].Nodes[0].Next)
	assert.Equal(t, "seller_profile", file.Workflows["seller"][0].Flow)
}

func TestParseRejectsDanglingEdge(t *testing.T) {
	_, err := Parse([]byte("workflows:\n  ally:\n    - id: 1\n      name: A\n      next: [2]\n"))
	assert.ErrorIs(t, err, ErrInvalidWorkflow)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	repos, _ := memory.NewStore()
	store := NewStore(repos.Workflows, repos.Stages)

	file, err := Parse([]byte(sampleFile))
	require.NoError(t, err)

	result, err := store.Seed(ctx, file, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Workflows)
	assert.Equal(t, 4, result.Stages)

	next, err := store.NextStages(ctx, "seller", 1)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, 3, next[0].ID)
	assert.Equal(t, 2, next[1].ID)

	again, err := store.Seed(ctx, file, false)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Workflows)
	assert.ElementsMatch(t, []string{"buyer", "seller"}, again.Skipped)
}
