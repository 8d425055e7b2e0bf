package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"charforge/internal/character"
	"charforge/internal/generation"
	"charforge/internal/logging"
	"charforge/internal/prompt"
)

// resolveDefinitions answers each template's placeholder questions
// against the narrative, one batched backend call per template, and
// persists each answer set under its own key so templates checkpoint
// independently.
func (p *Pipeline) resolveDefinitions(ctx context.Context) error {
	if len(p.state.Templates) == 0 {
		p.console.Warnf("No templates loaded; skipping definitions.")
		return nil
	}
	if p.state.Narrative == "" {
		p.console.Warnf("Narrative is missing; skipping definitions.")
		return nil
	}

	p.console.Titlef("Resolving the character's definitions.")
	for _, tmpl := range p.state.Templates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.resolveTemplate(ctx, tmpl); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) resolveTemplate(ctx context.Context, tmpl character.Template) error {
	key := definitionKey(tmpl.Identifier)
	if p.store.Exists(key) {
		var out generation.AnswerSet
		if err := p.store.Load(key, &out); err == nil {
			p.state.Definitions[tmpl.Identifier] = out.Answers
			p.console.Successf("Definition %q loaded from %s", tmpl.Identifier, p.store.Path(key))
			return nil
		}
		p.console.Warnf("Stored definition %q is unreadable; regenerating.", tmpl.Identifier)
	}

	questions, err := questionListJSON(tmpl)
	if err != nil {
		return fmt.Errorf("template %s: %w", tmpl.Identifier, err)
	}
	instruction := ""
	if tmpl.Instruction != "" {
		instruction = "- " + tmpl.Instruction
	}

	set, ok := generation.Constrained(ctx, "definition "+tmpl.Identifier,
		p.cfg.Pipeline.AttemptsPerRound,
		func(ctx context.Context) (generation.AnswerSet, error) {
			var out generation.AnswerSet
			err := p.generate(ctx, prompt.StageDefinitions, map[string]string{
				"narrative":   p.state.Narrative,
				"instruction": instruction,
				"questions":   questions,
			}, &out)
			return out, err
		},
		func(s generation.AnswerSet) bool { return coversPlaceholders(s, tmpl) },
		p.extendRetry)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.console.Warnf("Definition %q abandoned; continuing without it.", tmpl.Identifier)
		return nil
	}

	logging.Template("resolved %s with %d answers", tmpl.Identifier, len(set.Answers))
	p.state.Definitions[tmpl.Identifier] = set.Answers
	if err := p.store.Save(key, set); err != nil {
		p.console.Errorf("Could not save definition %q: %v", tmpl.Identifier, err)
		return nil
	}
	p.console.Successf("Definition %q saved to %s", tmpl.Identifier, p.store.Path(key))
	return nil
}

// questionListJSON renders the template's placeholders as the question
// list embedded in the definitions prompt, answers blank.
func questionListJSON(tmpl character.Template) (string, error) {
	list := make([]character.Answer, 0, len(tmpl.Placeholders))
	for _, ph := range tmpl.Placeholders {
		list = append(list, character.Answer{
			QuestionID: ph.ID,
			Question:   ph.Question,
			Response:   "",
		})
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode question list: %w", err)
	}
	return string(data), nil
}

// coversPlaceholders reports whether the answer set carries one entry
// per placeholder id. Empty responses count as covered: empty is the
// explicit "unknown" sentinel.
func coversPlaceholders(set generation.AnswerSet, tmpl character.Template) bool {
	byID := make(map[string]bool, len(set.Answers))
	for _, a := range set.Answers {
		byID[a.QuestionID] = true
	}
	for _, ph := range tmpl.Placeholders {
		if !byID[ph.ID] {
			return false
		}
	}
	return true
}
