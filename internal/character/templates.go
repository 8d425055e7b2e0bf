package character

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// templateFile mirrors the on-disk template format: a single-key object
// mapping the template identifier to its body.
type templateBody struct {
	Title       string             `json:"titulo"`
	Questions   []templateQuestion `json:"perguntas"`
	Instruction string             `json:"instrucao"`
}

type templateQuestion struct {
	Index     string `json:"indice"`
	Question  string `json:"pergunta"`
	Narrative string `json:"resposta"`
}

// LoadTemplates reads every *.json template under dir, in lexical file
// order, which is the discovery order used for final-document sections.
func LoadTemplates(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var templates []Template
	for _, name := range names {
		tpl, err := loadTemplateFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

func loadTemplateFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}

	var file map[string]templateBody
	if err := json.Unmarshal(data, &file); err != nil {
		return Template{}, fmt.Errorf("malformed template: %w", err)
	}
	if len(file) != 1 {
		return Template{}, fmt.Errorf("template must contain exactly one identifier, found %d", len(file))
	}

	var tpl Template
	for identifier, body := range file {
		tpl.Identifier = identifier
		tpl.Title = body.Title
		tpl.Instruction = body.Instruction
		for _, q := range body.Questions {
			if q.Index == "" {
				return Template{}, fmt.Errorf("placeholder with empty indice")
			}
			// Older templates carry the narrative line in "resposta";
			// newer ones fold it into "pergunta" itself.
			narrative := q.Narrative
			if narrative == "" {
				narrative = q.Question
			}
			tpl.Placeholders = append(tpl.Placeholders, Placeholder{
				ID:        q.Index,
				Question:  q.Question,
				Narrative: narrative,
			})
		}
	}
	if len(tpl.Placeholders) == 0 {
		return Template{}, fmt.Errorf("template %q has no placeholders", tpl.Identifier)
	}
	return tpl, nil
}
