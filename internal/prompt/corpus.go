// Package prompt holds the versioned prompt corpus, keyed by stage name.
// Prompt text lives in an embedded YAML document so the generation client
// and pipeline stages stay free of prompt strings; parameters are filled
// through an explicit substitution step.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var corpusYAML []byte

// Stage keys into the corpus.
const (
	StageNameBatch        = "name_batch"
	StageNameFix          = "name_fix"
	StageNarrative        = "narrative"
	StageSlogan           = "slogan"
	StageShortDescription = "short_description"
	StageGreeting         = "greeting"
	StageTags             = "tags"
	StageDefinitions      = "definitions"
	StageDialogues        = "dialogues"
)

// StagePrompt is one stage's prompt pair with its sampling parameters.
type StagePrompt struct {
	Version     int     `yaml:"version"`
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	// Large selects the larger model tier for long-form output.
	Large bool `yaml:"large"`
}

// Corpus is the loaded prompt set.
type Corpus struct {
	stages map[string]StagePrompt
}

// Load parses the embedded corpus.
func Load() (*Corpus, error) {
	stages := make(map[string]StagePrompt)
	if err := yaml.Unmarshal(corpusYAML, &stages); err != nil {
		return nil, fmt.Errorf("failed to parse prompt corpus: %w", err)
	}
	required := []string{
		StageNameBatch, StageNameFix, StageNarrative, StageSlogan,
		StageShortDescription, StageGreeting, StageTags,
		StageDefinitions, StageDialogues,
	}
	for _, key := range required {
		if _, ok := stages[key]; !ok {
			return nil, fmt.Errorf("prompt corpus missing stage %q", key)
		}
	}
	return &Corpus{stages: stages}, nil
}

// Get returns the prompt definition for a stage.
func (c *Corpus) Get(stage string) (StagePrompt, error) {
	p, ok := c.stages[stage]
	if !ok {
		return StagePrompt{}, fmt.Errorf("unknown prompt stage %q", stage)
	}
	return p, nil
}

// Render substitutes {{key}} parameters into the stage's prompts and
// returns the filled pair. Unresolved placeholders are a corpus bug and
// surface as an error rather than reaching the backend.
func (c *Corpus) Render(stage string, params map[string]string) (system, user string, err error) {
	p, err := c.Get(stage)
	if err != nil {
		return "", "", err
	}
	system = substitute(p.System, params)
	user = substitute(p.User, params)
	if leftover := firstPlaceholder(system); leftover != "" {
		return "", "", fmt.Errorf("stage %s: unresolved prompt parameter %s", stage, leftover)
	}
	if leftover := firstPlaceholder(user); leftover != "" {
		return "", "", fmt.Errorf("stage %s: unresolved prompt parameter %s", stage, leftover)
	}
	return system, user, nil
}

func substitute(text string, params map[string]string) string {
	for key, value := range params {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}

func firstPlaceholder(text string) string {
	start := strings.Index(text, "{{")
	if start < 0 {
		return ""
	}
	end := strings.Index(text[start:], "}}")
	if end < 0 {
		return ""
	}
	return text[start : start+end+2]
}
