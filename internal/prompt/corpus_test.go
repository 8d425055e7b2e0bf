package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHasAllStages(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	for _, stage := range []string{
		StageNameBatch, StageNameFix, StageNarrative, StageSlogan,
		StageShortDescription, StageGreeting, StageTags,
		StageDefinitions, StageDialogues,
	} {
		p, err := c.Get(stage)
		require.NoError(t, err, stage)
		assert.NotEmpty(t, p.System, "%s system prompt", stage)
		assert.NotEmpty(t, p.User, "%s user prompt", stage)
		assert.Greater(t, p.Temperature, 0.0, "%s temperature", stage)
		assert.Greater(t, p.TopP, 0.0, "%s top_p", stage)
	}
}

func TestLargeTierStages(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	for stage, wantLarge := range map[string]bool{
		StageNarrative:   true,
		StageDefinitions: true,
		StageDialogues:   true,
		StageSlogan:      false,
		StageGreeting:    false,
	} {
		p, err := c.Get(stage)
		require.NoError(t, err)
		assert.Equal(t, wantLarge, p.Large, stage)
	}
}

func TestRenderSubstitutesParameters(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	system, user, err := c.Render(StageSlogan, map[string]string{
		"narrative": "A quiet librarian with a sharp tongue.",
		"max_chars": "50",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, system)
	assert.Contains(t, user, "A quiet librarian with a sharp tongue.")
	assert.Contains(t, user, "50 characters")
	assert.NotContains(t, user, "{{")
}

func TestRenderRejectsUnresolvedParameters(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	_, _, err = c.Render(StageSlogan, map[string]string{"narrative": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_chars")
}

func TestRenderUnknownStage(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	_, _, err = c.Render("nope", nil)
	assert.Error(t, err)
}
