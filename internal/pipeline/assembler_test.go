package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"charforge/internal/character"
)

func assemblyState() *character.State {
	state := character.NewState()
	state.Templates = []character.Template{
		{
			Identifier: "appearance",
			Title:      "Appearance",
			Placeholders: []character.Placeholder{
				{ID: "eye_color", Question: "Eye color?", Narrative: "Eye color: {eye_color}"},
				{ID: "height", Question: "Height?", Narrative: "Height: {height}"},
			},
		},
		{
			Identifier: "personality",
			Title:      "Personality",
			Placeholders: []character.Placeholder{
				{ID: "temper", Question: "Temperament?", Narrative: "Temperament: {temper}"},
			},
		},
	}
	return state
}

func TestAssembleSubstitutesPlaceholders(t *testing.T) {
	state := assemblyState()
	state.Definitions["appearance"] = []character.Answer{
		{QuestionID: "eye_color", Response: "blue"},
		{QuestionID: "height", Response: "1.75m"},
	}

	doc := AssembleDocument(state)
	assert.Contains(t, doc, "** Appearance **")
	assert.Contains(t, doc, "- Eye color: blue")
	assert.Contains(t, doc, "- Height: 1.75m")
	assert.NotContains(t, doc, "{eye_color}")
}

func TestAssembleOmitsEmptyAnswers(t *testing.T) {
	state := assemblyState()
	state.Definitions["appearance"] = []character.Answer{
		{QuestionID: "eye_color", Response: "blue"},
		{QuestionID: "height", Response: ""},
	}

	doc := AssembleDocument(state)
	assert.Contains(t, doc, "Eye color: blue")
	assert.NotContains(t, doc, "Height:")
	assert.NotContains(t, doc, "{height}")
}

func TestAssembleOmitsFullyEmptySection(t *testing.T) {
	state := assemblyState()
	state.Definitions["appearance"] = []character.Answer{
		{QuestionID: "eye_color", Response: ""},
		{QuestionID: "height", Response: ""},
	}
	state.Definitions["personality"] = []character.Answer{
		{QuestionID: "temper", Response: "fiery"},
	}

	doc := AssembleDocument(state)
	assert.NotContains(t, doc, "** Appearance **")
	assert.Contains(t, doc, "** Personality **")
	assert.Contains(t, doc, "- Temperament: fiery")
}

func TestAssembleSectionsFollowDiscoveryOrder(t *testing.T) {
	state := assemblyState()
	state.Definitions["appearance"] = []character.Answer{{QuestionID: "eye_color", Response: "blue"}}
	state.Definitions["personality"] = []character.Answer{{QuestionID: "temper", Response: "calm"}}

	doc := AssembleDocument(state)
	assert.Less(t, strings.Index(doc, "** Appearance **"), strings.Index(doc, "** Personality **"))
}

func TestAssembleDialogueSection(t *testing.T) {
	state := assemblyState()
	state.Definitions["personality"] = []character.Answer{{QuestionID: "temper", Response: "calm"}}
	state.Dialogues = []character.DialoguePair{
		{User1: "user", Msg1: " hello ", User2: "char", Msg2: "hi"},
		{User1: "user", Msg1: "", User2: "char", Msg2: "dropped"},
		{User1: "char", Msg1: "You again?", User2: "random_user_1", Msg2: "Yep."},
	}

	doc := AssembleDocument(state)
	assert.Contains(t, doc, "### CHARACTER DIALOGUES ###")
	assert.Contains(t, doc, "{{user}}: hello")
	assert.Contains(t, doc, "{{char}}: hi")
	assert.Contains(t, doc, "{{random_user_1}}: Yep.")
	assert.NotContains(t, doc, "dropped")
}

func TestAssembleEmptyStateYieldsNothing(t *testing.T) {
	state := assemblyState()
	assert.Empty(t, AssembleDocument(state))

	// Dialogue-only content still produces a document.
	state.Dialogues = []character.DialoguePair{
		{User1: "user", Msg1: "hey", User2: "char", Msg2: "hello"},
	}
	doc := AssembleDocument(state)
	assert.Contains(t, doc, "### CHARACTER DEFINITIONS ###")
	assert.Contains(t, doc, "### CHARACTER DIALOGUES ###")
}
