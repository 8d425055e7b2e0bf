package generation

import (
	"errors"
	"fmt"
	"strings"

	"charforge/internal/character"
)

// ErrInvalidShape marks a backend reply that parsed but does not satisfy
// the requested result shape. Distinguishable from transport errors so
// callers can apply field-specific fallback policy.
var ErrInvalidShape = errors.New("backend returned payload with invalid shape")

// Shape is one member of the closed set of result shapes. Every stage
// declares its expected output as a fixed record type known at compile
// time; the client decodes into it and calls Validate before returning.
type Shape interface {
	Validate() error
}

// NameCandidate is one generated full name.
type NameCandidate struct {
	First string `json:"nome"`
	Last  string `json:"sobrenome"`
	Full  string `json:"nomecompleto"`
}

// NameBatch is the name-generation result: a batch of candidates.
type NameBatch struct {
	Names []NameCandidate `json:"nomes"`
}

func (n NameBatch) Validate() error {
	if len(n.Names) == 0 {
		return fmt.Errorf("%w: empty name batch", ErrInvalidShape)
	}
	for i, c := range n.Names {
		if strings.TrimSpace(c.Full) == "" {
			return fmt.Errorf("%w: name %d has empty nomecompleto", ErrInvalidShape, i)
		}
	}
	return nil
}

// NameFix is the normalization-pass result.
type NameFix struct {
	Name string `json:"nome"`
}

func (n NameFix) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: empty corrected name", ErrInvalidShape)
	}
	return nil
}

// Narrative is the general-description result. Also used for the short
// first-person bio, which shares the same payload key.
type Narrative struct {
	Description string `json:"descricao"`
}

func (n Narrative) Validate() error {
	if strings.TrimSpace(n.Description) == "" {
		return fmt.Errorf("%w: empty descricao", ErrInvalidShape)
	}
	return nil
}

// Slogan is the slogan result.
type Slogan struct {
	Slogan string `json:"slogan"`
}

func (s Slogan) Validate() error {
	if strings.TrimSpace(s.Slogan) == "" {
		return fmt.Errorf("%w: empty slogan", ErrInvalidShape)
	}
	return nil
}

// Greeting is the greeting result.
type Greeting struct {
	Greeting string `json:"saudacao"`
}

func (g Greeting) Validate() error {
	if strings.TrimSpace(g.Greeting) == "" {
		return fmt.Errorf("%w: empty saudacao", ErrInvalidShape)
	}
	return nil
}

// TagList is the tag-classification result.
type TagList struct {
	Tags []string `json:"etiquetas"`
}

func (t TagList) Validate() error {
	if len(t.Tags) == 0 {
		return fmt.Errorf("%w: empty etiquetas", ErrInvalidShape)
	}
	return nil
}

// AnswerSet is the template-resolution result: one answer per question.
// An empty Response is the explicit "unknown" sentinel and is valid.
type AnswerSet struct {
	Answers []character.Answer `json:"perguntas"`
}

func (a AnswerSet) Validate() error {
	if len(a.Answers) == 0 {
		return fmt.Errorf("%w: empty perguntas", ErrInvalidShape)
	}
	for i, ans := range a.Answers {
		if strings.TrimSpace(ans.QuestionID) == "" {
			return fmt.Errorf("%w: answer %d has empty pergunta_id", ErrInvalidShape, i)
		}
	}
	return nil
}

// DialogueBatch is the dialogue-generation result. Pair validity (both
// turns non-empty) is enforced at accept time, not here, so one bad pair
// does not discard a whole batch.
type DialogueBatch struct {
	Pairs []character.DialoguePair `json:"dialogos"`
}

func (d DialogueBatch) Validate() error {
	if len(d.Pairs) == 0 {
		return fmt.Errorf("%w: empty dialogos", ErrInvalidShape)
	}
	return nil
}
