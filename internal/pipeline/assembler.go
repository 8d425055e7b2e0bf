package pipeline

import (
	"context"
	"fmt"
	"strings"

	"charforge/internal/character"
	"charforge/internal/logging"
)

const sectionDivider = "----\n"

// assembleDocument builds the final text artifact from the resolved
// definitions and accepted dialogues and persists it.
func (p *Pipeline) assembleDocument(ctx context.Context) error {
	if p.store.Exists(keyDocument) {
		var art documentArtifact
		if err := p.store.Load(keyDocument, &art); err == nil {
			p.state.FinalDocument = art.Code
			p.console.Successf("Document loaded from %s", p.store.Path(keyDocument))
			return nil
		}
		p.console.Warnf("Stored document is unreadable; reassembling.")
	}

	doc := AssembleDocument(p.state)
	if doc == "" {
		p.console.Warnf("Nothing resolved; no document to assemble.")
		return nil
	}
	p.state.FinalDocument = doc
	logging.Assembly("assembled document, %d bytes", len(doc))
	if err := p.store.Save(keyDocument, documentArtifact{Code: doc}); err != nil {
		p.console.Errorf("Could not save document: %v", err)
		return nil
	}
	p.console.Successf("Document saved to %s", p.store.Path(keyDocument))
	return nil
}

// AssembleDocument concatenates one titled section per template with at
// least one non-empty resolved answer, in template-discovery order,
// followed by a dialogue section of the valid pairs. Placeholder
// narratives have their "{id}" token replaced by the resolved answer;
// empty answers omit the line entirely.
func AssembleDocument(state *character.State) string {
	var b strings.Builder

	var sections []string
	for _, tmpl := range state.Templates {
		if section := templateSection(tmpl, state.Definitions[tmpl.Identifier]); section != "" {
			sections = append(sections, section)
		}
	}
	dialogue := dialogueSection(state.Dialogues)
	if len(sections) == 0 && dialogue == "" {
		return ""
	}

	b.WriteString(sectionDivider)
	b.WriteString("### CHARACTER DEFINITIONS ###\n")
	b.WriteString(sectionDivider)
	for _, section := range sections {
		b.WriteString(section)
	}
	b.WriteString(dialogue)

	return strings.TrimSpace(b.String())
}

// templateSection renders one template's titled block, or "" when every
// placeholder resolved empty.
func templateSection(tmpl character.Template, answers []character.Answer) string {
	byID := make(map[string]string, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a.Response
	}

	var lines []string
	for _, ph := range tmpl.Placeholders {
		answer := strings.TrimSpace(byID[ph.ID])
		if answer == "" {
			continue
		}
		lines = append(lines, "- "+strings.ReplaceAll(ph.Narrative, "{"+ph.ID+"}", answer))
	}
	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(sectionDivider)
	b.WriteString("** " + tmpl.Title + " **\n")
	b.WriteString(sectionDivider)
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	b.WriteString(sectionDivider)
	return b.String()
}

// dialogueSection renders the valid pairs as two tagged lines each, or
// "" when no pair survives.
func dialogueSection(pairs []character.DialoguePair) string {
	var b strings.Builder
	count := 0
	for _, d := range pairs {
		if !d.Valid() {
			continue
		}
		b.WriteString(fmt.Sprintf("{{%s}}: %s\n", strings.TrimSpace(d.User1), strings.TrimSpace(d.Msg1)))
		b.WriteString(fmt.Sprintf("{{%s}}: %s\n", strings.TrimSpace(d.User2), strings.TrimSpace(d.Msg2)))
		b.WriteString(sectionDivider)
		count++
	}
	if count == 0 {
		return ""
	}

	header := "\n\n\n\n" + sectionDivider +
		"### CHARACTER DIALOGUES ###\n" +
		sectionDivider + "\n\n" + sectionDivider
	return header + b.String()
}
