// Package character holds the in-memory aggregate for one pipeline run and
// the loaders for its static inputs (base questions and attribute templates).
package character

import "strings"

// Speaker tag for the subject character in dialogue pairs. Secondary
// speakers use arbitrary tags ("user", "random_user_1", ...).
const SubjectSpeaker = "char"

// State is the mutable aggregate for one character, owned exclusively by
// the pipeline controller for the duration of a run. Later stages read,
// never mutate, earlier stages' outputs.
type State struct {
	// Answers holds the user-supplied base facts, keyed by question key.
	Answers map[string]string

	// Generated fields; the zero value means absent (failed or not reached).
	Name             string
	Narrative        string
	Slogan           string
	ShortDescription string
	Greeting         string
	Tags             []string

	// Definitions maps a template identifier to its resolved answer set.
	Definitions map[string][]Answer

	// Templates in discovery order; significant for document assembly.
	Templates []Template

	Dialogues []DialoguePair

	FinalDocument string
}

// NewState creates an empty aggregate.
func NewState() *State {
	return &State{
		Answers:     make(map[string]string),
		Definitions: make(map[string][]Answer),
	}
}

// Answer is one resolved placeholder question for a template.
// The empty Response is the explicit "unknown" sentinel.
type Answer struct {
	QuestionID string `json:"pergunta_id"`
	Question   string `json:"pergunta"`
	Response   string `json:"resposta"`
}

// Template is one attribute category: a title plus placeholder questions
// whose answers are substituted into fixed narrative text.
type Template struct {
	Identifier   string
	Title        string
	Instruction  string
	Placeholders []Placeholder
}

// Placeholder is a single templated question/answer slot. Narrative
// contains the literal token "{<ID>}" where the answer is substituted.
type Placeholder struct {
	ID        string
	Question  string
	Narrative string
}

// DialoguePair is two turns of sample dialogue.
type DialoguePair struct {
	User1 string `json:"user1"`
	Msg1  string `json:"msg1"`
	User2 string `json:"user2"`
	Msg2  string `json:"msg2"`
}

// Valid reports whether both turns carry a speaker and a message.
// Invalid pairs are dropped, never assembled.
func (d DialoguePair) Valid() bool {
	return strings.TrimSpace(d.User1) != "" &&
		strings.TrimSpace(d.Msg1) != "" &&
		strings.TrimSpace(d.User2) != "" &&
		strings.TrimSpace(d.Msg2) != ""
}
