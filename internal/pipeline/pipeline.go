// Package pipeline drives the fixed stage sequence that turns collected
// facts into a complete character profile. Each stage checks its
// checkpoint artifact first, generates through the backend otherwise,
// persists the result, and updates the shared state. Stages never
// re-enter earlier stages; a failed field stays unset and the run
// continues.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"charforge/internal/character"
	"charforge/internal/checkpoint"
	"charforge/internal/config"
	"charforge/internal/generation"
	"charforge/internal/logging"
	"charforge/internal/prompt"
	"charforge/internal/ux"
)

// Checkpoint keys, one per generated field. Definitions use a
// per-template key (see definitionKey).
const (
	keyFacts            = "facts"
	keyNarrative        = "narrative"
	keySlogan           = "slogan"
	keyShortDescription = "short_description"
	keyGreeting         = "greeting"
	keyTags             = "tags"
	keyDialogues        = "dialogues"
	keyDocument         = "document"
)

func definitionKey(identifier string) string {
	return "definition_" + identifier
}

// Field limits, counted in runes.
const (
	MaxNameChars             = 20
	MaxSloganChars           = 50
	MaxShortDescriptionChars = 500
	MaxGreetingChars         = 4096
	MaxTags                  = 5

	nameCandidateCount = 10
)

// tagVocabulary is the closed set of allowed tags, supplied to the
// backend in the prompt and enforced again after generation.
var tagVocabulary = []string{
	"Anime", "Action", "Adventure", "Fantasy", "Romance", "Shy", "Yandere",
	"LGBTQIA", "Platonic", "Boss", "Boyfriend", "Girlfriend", "Husband",
	"Mafia", "Wife", "Human", "Slice of Life", "Classmate", "Coworker",
	"Schoolmate", "RPG", "Vampire", "Love interest", "One-sided",
	"Magicverse", "Royalverse", "Comedy", "Horror", "Supernatural", "Bully",
	"Best friend", "Brother", "Ghost", "Police", "Professor", "Roommate",
	"Sister", "Student", "Teacher", "Robot", "Collegeverse", "Heroverse",
	"Vtuber", "Coming of Age", "Dystopian", "Mystery/Thriller", "Parody",
	"Science Fiction", "Apprentice", "Colleague", "Crime Boss", "Enemy",
	"Executive", "Father", "Gangster", "Mentor", "Mother", "Fairy", "Bossy",
	"Diligent", "Empathetic", "Flirtatious", "Jealous", "Kind",
	"Manipulative", "Narcissistic", "K-Pop", "Drama", "Officeworkverse",
	"Sports", "Coffeeverse",
}

// Checkpoint artifact wrappers for fields whose payload is not already a
// generation shape.
type factsArtifact struct {
	Answers map[string]string `json:"informacoes"`
}

type documentArtifact struct {
	Code string `json:"codigo"`
}

// Options wires a Pipeline together. Client, Store, Corpus, Console,
// Prompter and Config are required; Rand defaults to a time-seeded
// source when nil.
type Options struct {
	Client    generation.Client
	Store     *checkpoint.Store
	Corpus    *prompt.Corpus
	Console   *ux.Console
	Prompter  ux.Prompter
	Config    *config.Config
	Questions []character.Question
	Templates []character.Template
	Rand      *rand.Rand
}

// Pipeline owns one run's state and executes the stage sequence.
type Pipeline struct {
	client    generation.Client
	store     *checkpoint.Store
	corpus    *prompt.Corpus
	console   *ux.Console
	prompter  ux.Prompter
	cfg       *config.Config
	questions []character.Question
	templates []character.Template
	rng       *rand.Rand
	runID     string
	log       *logging.RunLogger
	state     *character.State
}

// New builds a pipeline from options.
func New(opts Options) (*Pipeline, error) {
	if opts.Client == nil || opts.Store == nil || opts.Corpus == nil ||
		opts.Console == nil || opts.Prompter == nil || opts.Config == nil {
		return nil, fmt.Errorf("pipeline: missing required dependency")
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	runID := uuid.NewString()
	return &Pipeline{
		client:    opts.Client,
		store:     opts.Store,
		corpus:    opts.Corpus,
		console:   opts.Console,
		prompter:  opts.Prompter,
		cfg:       opts.Config,
		questions: opts.Questions,
		templates: opts.Templates,
		rng:       rng,
		runID:     runID,
		log:       logging.WithRunID(logging.CategoryPipeline, runID),
	}, nil
}

// State returns the run's aggregate. Valid after Run.
func (p *Pipeline) State() *character.State {
	return p.state
}

// Run executes every stage in order. It returns early only on context
// cancellation or an unrecoverable prompt failure; generation failures
// leave their field unset and the run continues.
func (p *Pipeline) Run(ctx context.Context) error {
	p.state = character.NewState()
	p.state.Templates = p.templates

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"facts", p.collectFacts},
		{"name", p.resolveName},
		{"narrative", p.generateNarrative},
		{"slogan", p.generateSlogan},
		{"short description", p.generateShortDescription},
		{"greeting", p.generateGreeting},
		{"tags", p.generateTags},
		{"definitions", p.resolveDefinitions},
		{"dialogues", p.generateDialogues},
		{"document", p.assembleDocument},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.log.Info("stage %s start", stage.name)
		if err := stage.fn(ctx); err != nil {
			p.log.Warn("stage %s aborted: %v", stage.name, err)
			return err
		}
		p.log.Info("stage %s done", stage.name)
	}

	p.printSummary()
	return nil
}

// generate renders the stage's prompt and calls the backend for one
// structured result.
func (p *Pipeline) generate(ctx context.Context, stage string, params map[string]string, out generation.Shape) error {
	system, user, err := p.corpus.Render(stage, params)
	if err != nil {
		return err
	}
	sp, err := p.corpus.Get(stage)
	if err != nil {
		return err
	}
	return p.client.Generate(ctx, generation.Request{
		Stage:       stage,
		System:      system,
		User:        user,
		Temperature: sp.Temperature,
		TopP:        sp.TopP,
		Large:       sp.Large,
	}, out)
}

// extendRetry asks the operator whether to run another round of
// attempts for a field. A failed read counts as "no".
func (p *Pipeline) extendRetry(field string) bool {
	ok, err := p.prompter.Confirm(fmt.Sprintf(
		"Try %d more times for the %s?", p.cfg.Pipeline.AttemptsPerRound, field))
	if err != nil {
		return false
	}
	return ok
}

// --- stage: base facts ---

func (p *Pipeline) collectFacts(ctx context.Context) error {
	if p.store.Exists(keyFacts) {
		var art factsArtifact
		if err := p.store.Load(keyFacts, &art); err == nil && len(art.Answers) > 0 {
			p.state.Answers = art.Answers
			p.console.Successf("Facts loaded from %s", p.store.Path(keyFacts))
			return nil
		}
		p.console.Warnf("Stored facts are unreadable; collecting again.")
	}

	p.console.Titlef("Let's collect the basic facts about your character.")
	p.console.Plainf("Press Enter to skip any question.")
	for i, q := range p.questions {
		if err := ctx.Err(); err != nil {
			return err
		}
		answer, err := p.prompter.Ask(fmt.Sprintf("%d of %d — %s", i+1, len(p.questions), q.Text))
		if err != nil {
			return fmt.Errorf("failed to read answer: %w", err)
		}
		if answer != "" {
			p.state.Answers[q.Key] = answer
		}
	}
	return p.saveFacts()
}

func (p *Pipeline) saveFacts() error {
	if err := p.store.Save(keyFacts, factsArtifact{Answers: p.state.Answers}); err != nil {
		p.console.Errorf("Could not save facts: %v", err)
		return nil
	}
	p.console.Successf("Facts saved to %s", p.store.Path(keyFacts))
	return nil
}

// --- stage: name ---

// resolveName fills the subject's name. A user-supplied name is kept
// as-is; otherwise a candidate batch is generated, one candidate is
// picked at random, and a normalization pass fixes capitalization and
// diacritics without changing the word count. The resolved name is
// written back into the facts artifact.
func (p *Pipeline) resolveName(ctx context.Context) error {
	if name := strings.TrimSpace(p.state.Answers[character.QuestionKeyName]); name != "" {
		p.state.Name = name
		return nil
	}

	gender := strings.TrimSpace(p.state.Answers[character.QuestionKeyGender])
	if gender == "" {
		gender = []string{"male", "female"}[p.rng.Intn(2)]
	}

	p.console.Titlef("Generating a name for your character.")
	raw := p.pickNameCandidate(ctx, gender)
	if raw == "" {
		// Batch generation failed; fall back to the operator.
		p.console.Warnf("Name generation failed.")
		typed, err := p.prompter.Ask(fmt.Sprintf("Type the character's name (up to %d characters)", MaxNameChars))
		if err != nil {
			return fmt.Errorf("failed to read name: %w", err)
		}
		raw = strings.TrimSpace(typed)
		if raw == "" {
			p.console.Warnf("No name provided; continuing without one.")
			return nil
		}
	}

	name := p.normalizeName(ctx, raw)
	p.state.Name = name
	p.state.Answers[character.QuestionKeyName] = name
	p.console.Successf("Name: %s", name)
	return p.saveFacts()
}

func (p *Pipeline) pickNameCandidate(ctx context.Context, gender string) string {
	batch, ok := generation.Constrained(ctx, "name", p.cfg.Pipeline.AttemptsPerRound,
		func(ctx context.Context) (generation.NameBatch, error) {
			var out generation.NameBatch
			err := p.generate(ctx, prompt.StageNameBatch, map[string]string{
				"gender":    gender,
				"count":     fmt.Sprint(nameCandidateCount),
				"max_chars": fmt.Sprint(MaxNameChars),
			}, &out)
			return out, err
		},
		func(b generation.NameBatch) bool {
			return len(usableNames(b)) > 0
		},
		nil)
	if !ok {
		return ""
	}
	usable := usableNames(batch)
	return usable[p.rng.Intn(len(usable))]
}

// usableNames filters a batch down to candidates with a first and last
// name within the length limit.
func usableNames(b generation.NameBatch) []string {
	var out []string
	for _, c := range b.Names {
		full := strings.TrimSpace(c.Full)
		if full == "" || utf8.RuneCountInString(full) > MaxNameChars {
			continue
		}
		if len(strings.Fields(full)) < 2 {
			continue
		}
		out = append(out, full)
	}
	return out
}

// normalizeName runs the correction pass. The corrected name must keep
// the original word count and fit the limit; otherwise the raw name is
// kept.
func (p *Pipeline) normalizeName(ctx context.Context, raw string) string {
	var out generation.NameFix
	err := p.generate(ctx, prompt.StageNameFix, map[string]string{
		"name":      raw,
		"max_chars": fmt.Sprint(MaxNameChars),
	}, &out)
	if err != nil {
		p.log.Warn("name normalization failed, keeping %q: %v", raw, err)
		return raw
	}
	fixed := strings.TrimSpace(out.Name)
	if utf8.RuneCountInString(fixed) > MaxNameChars ||
		len(strings.Fields(fixed)) != len(strings.Fields(raw)) {
		p.log.Warn("name normalization altered %q to %q, keeping original", raw, fixed)
		return raw
	}
	return fixed
}

// --- stage: narrative ---

func (p *Pipeline) generateNarrative(ctx context.Context) error {
	if p.store.Exists(keyNarrative) {
		var out generation.Narrative
		if err := p.store.Load(keyNarrative, &out); err == nil {
			p.state.Narrative = out.Description
			p.console.Successf("Narrative loaded from %s", p.store.Path(keyNarrative))
			return nil
		}
		p.console.Warnf("Stored narrative is unreadable; regenerating.")
	}
	if len(p.state.Answers) == 0 {
		p.console.Warnf("No facts available; skipping the narrative.")
		return nil
	}

	p.console.Titlef("Writing the character's narrative description.")
	var out generation.Narrative
	err := p.generate(ctx, prompt.StageNarrative, map[string]string{
		"facts": p.factsSummary(),
	}, &out)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.console.Errorf("Narrative generation failed: %v", err)
		return nil
	}
	p.state.Narrative = out.Description
	if err := p.store.Save(keyNarrative, out); err != nil {
		p.console.Errorf("Could not save narrative: %v", err)
		return nil
	}
	p.console.Successf("Narrative saved to %s", p.store.Path(keyNarrative))
	return nil
}

// factsSummary renders the answers as "Key: value" lines in question
// order, so the narrative prompt is deterministic for a given state.
func (p *Pipeline) factsSummary() string {
	var lines []string
	seen := make(map[string]bool)
	for _, q := range p.questions {
		if v, ok := p.state.Answers[q.Key]; ok && v != "" {
			lines = append(lines, capitalize(q.Key)+": "+v)
			seen[q.Key] = true
		}
	}
	// Answers restored from an artifact written against an older
	// question file still contribute.
	for k, v := range p.state.Answers {
		if !seen[k] && v != "" {
			lines = append(lines, capitalize(k)+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}

// --- stages: slogan, short description, greeting ---

func (p *Pipeline) generateSlogan(ctx context.Context) error {
	return boundedText(ctx, p, keySlogan, prompt.StageSlogan, "slogan", MaxSloganChars,
		func(s generation.Slogan) string { return s.Slogan },
		func(v string) { p.state.Slogan = v })
}

func (p *Pipeline) generateShortDescription(ctx context.Context) error {
	return boundedText(ctx, p, keyShortDescription, prompt.StageShortDescription,
		"short description", MaxShortDescriptionChars,
		func(s generation.Narrative) string { return s.Description },
		func(v string) { p.state.ShortDescription = v })
}

func (p *Pipeline) generateGreeting(ctx context.Context) error {
	return boundedText(ctx, p, keyGreeting, prompt.StageGreeting, "greeting", MaxGreetingChars,
		func(s generation.Greeting) string { return s.Greeting },
		func(v string) { p.state.Greeting = v })
}

// boundedText is the checkpoint-or-generate flow shared by the three
// narrative-derived string fields with a rune-length ceiling. text
// reads the string out of the stage's result shape; assign writes the
// accepted value into the run state.
func boundedText[S generation.Shape](ctx context.Context, p *Pipeline,
	key, stage, label string, max int, text func(S) string, assign func(string)) error {

	if p.store.Exists(key) {
		var out S
		if err := p.store.Load(key, &out); err == nil {
			assign(text(out))
			p.console.Successf("%s loaded from %s", capitalize(label), p.store.Path(key))
			return nil
		}
		p.console.Warnf("Stored %s is unreadable; regenerating.", label)
	}
	if p.state.Narrative == "" {
		p.console.Warnf("Narrative is missing; skipping the %s.", label)
		return nil
	}

	p.console.Titlef("Generating the %s (up to %d characters).", label, max)
	value, ok := generation.Constrained(ctx, label, p.cfg.Pipeline.AttemptsPerRound,
		func(ctx context.Context) (S, error) {
			var out S
			err := p.generate(ctx, stage, map[string]string{
				"narrative": p.state.Narrative,
				"max_chars": fmt.Sprint(max),
			}, any(&out).(generation.Shape))
			return out, err
		},
		func(s S) bool {
			v := text(s)
			return v != "" && utf8.RuneCountInString(v) <= max
		},
		p.extendRetry)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.console.Warnf("%s abandoned; continuing without it.", capitalize(label))
		return nil
	}

	assign(text(value))
	if err := p.store.Save(key, value); err != nil {
		p.console.Errorf("Could not save %s: %v", label, err)
		return nil
	}
	p.console.Successf("%s saved to %s", capitalize(label), p.store.Path(key))
	return nil
}

func (p *Pipeline) generateTags(ctx context.Context) error {
	if p.store.Exists(keyTags) {
		var out generation.TagList
		if err := p.store.Load(keyTags, &out); err == nil {
			p.state.Tags = out.Tags
			p.console.Successf("Tags loaded from %s", p.store.Path(keyTags))
			return nil
		}
		p.console.Warnf("Stored tags are unreadable; regenerating.")
	}
	if p.state.Narrative == "" {
		p.console.Warnf("Narrative is missing; skipping tags.")
		return nil
	}

	p.console.Titlef("Choosing tags (up to %d).", MaxTags)
	list, ok := generation.Constrained(ctx, "tags", p.cfg.Pipeline.AttemptsPerRound,
		func(ctx context.Context) (generation.TagList, error) {
			var out generation.TagList
			err := p.generate(ctx, prompt.StageTags, map[string]string{
				"narrative":  p.state.Narrative,
				"max_tags":   fmt.Sprint(MaxTags),
				"vocabulary": strings.Join(tagVocabulary, ", "),
			}, &out)
			return out, err
		},
		func(l generation.TagList) bool {
			return len(l.Tags) <= MaxTags && len(filterTags(l.Tags)) > 0
		},
		p.extendRetry)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.console.Warnf("Tags abandoned; continuing without them.")
		return nil
	}

	accepted := filterTags(list.Tags)
	if dropped := len(list.Tags) - len(accepted); dropped > 0 {
		p.console.Warnf("Dropped %d tag(s) outside the allowed list.", dropped)
	}
	p.state.Tags = accepted
	if err := p.store.Save(keyTags, generation.TagList{Tags: accepted}); err != nil {
		p.console.Errorf("Could not save tags: %v", err)
		return nil
	}
	p.console.Successf("Tags: %s", strings.Join(accepted, ", "))
	return nil
}

// filterTags keeps only members of the closed vocabulary, mapped to
// their canonical casing.
func filterTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		for _, allowed := range tagVocabulary {
			if strings.EqualFold(strings.TrimSpace(t), allowed) {
				out = append(out, allowed)
				break
			}
		}
	}
	return out
}

// --- stage: dialogues ---

func (p *Pipeline) generateDialogues(ctx context.Context) error {
	if p.store.Exists(keyDialogues) {
		var out generation.DialogueBatch
		if err := p.store.Load(keyDialogues, &out); err == nil {
			p.state.Dialogues = out.Pairs
			p.console.Successf("Dialogues loaded from %s (%d pairs)", p.store.Path(keyDialogues), len(out.Pairs))
		} else {
			p.console.Warnf("Stored dialogues are unreadable; starting over.")
		}
	}
	if len(p.state.Dialogues) > p.cfg.Pipeline.DialogueSoftCap {
		p.console.Plainf("Dialogue cap reached (%d pairs); not generating more.", len(p.state.Dialogues))
		return nil
	}
	if p.state.Narrative == "" {
		p.console.Warnf("Narrative is missing; skipping dialogues.")
		return nil
	}

	p.console.Titlef("Generating sample dialogues.")
	for len(p.state.Dialogues) <= p.cfg.Pipeline.DialogueSoftCap {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, ok := generation.Constrained(ctx, "dialogues", p.cfg.Pipeline.AttemptsPerRound,
			func(ctx context.Context) (generation.DialogueBatch, error) {
				var out generation.DialogueBatch
				err := p.generate(ctx, prompt.StageDialogues, map[string]string{
					"narrative": p.state.Narrative,
					"count":     fmt.Sprint(p.cfg.Pipeline.DialogueBatchSize),
				}, &out)
				return out, err
			},
			func(b generation.DialogueBatch) bool {
				return len(validPairs(b.Pairs)) > 0
			},
			p.extendRetry)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			break
		}

		accepted := validPairs(batch.Pairs)
		if dropped := len(batch.Pairs) - len(accepted); dropped > 0 {
			logging.Dialogue("dropped %d invalid pair(s) from batch", dropped)
		}
		p.state.Dialogues = append(p.state.Dialogues, accepted...)
		if err := p.store.Save(keyDialogues, generation.DialogueBatch{Pairs: p.state.Dialogues}); err != nil {
			p.console.Errorf("Could not save dialogues: %v", err)
			return nil
		}
		p.console.Successf("Dialogues saved (%d pairs so far).", len(p.state.Dialogues))
	}
	return nil
}

func validPairs(pairs []character.DialoguePair) []character.DialoguePair {
	var out []character.DialoguePair
	for _, d := range pairs {
		if d.Valid() {
			out = append(out, d)
		}
	}
	return out
}

// --- final summary ---

func (p *Pipeline) printSummary() {
	p.console.Titlef("Your character is complete.")
	p.console.Fieldf(fmt.Sprintf("Name (%d of %d characters)", utf8.RuneCountInString(p.state.Name), MaxNameChars), "%s", p.state.Name)
	p.console.Fieldf(fmt.Sprintf("Slogan (%d of %d characters)", utf8.RuneCountInString(p.state.Slogan), MaxSloganChars), "%s", p.state.Slogan)
	p.console.Fieldf(fmt.Sprintf("Short description (%d of %d characters)", utf8.RuneCountInString(p.state.ShortDescription), MaxShortDescriptionChars), "%s", p.state.ShortDescription)
	p.console.Fieldf(fmt.Sprintf("Greeting (%d of %d characters)", utf8.RuneCountInString(p.state.Greeting), MaxGreetingChars), "%s", p.state.Greeting)
	p.console.Fieldf(fmt.Sprintf("Tags (%d of %d)", len(p.state.Tags), MaxTags), "%s", strings.Join(p.state.Tags, ", "))
	p.console.Fieldf(fmt.Sprintf("Definitions (%d characters)", utf8.RuneCountInString(p.state.FinalDocument)), "%s", p.state.FinalDocument)
}
