package pipeline

import (
	"context"
	"fmt"

	"charforge/internal/generation"
)

// fakeClient scripts backend replies per stage and records every call.
type fakeClient struct {
	handlers map[string]func(req generation.Request, out generation.Shape) error
	calls    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]func(generation.Request, generation.Shape) error)}
}

func (f *fakeClient) on(stage string, h func(generation.Request, generation.Shape) error) {
	f.handlers[stage] = h
}

// reply registers a handler that copies a fixed shape value into out.
func (f *fakeClient) reply(stage string, value generation.Shape) {
	f.on(stage, func(_ generation.Request, out generation.Shape) error {
		return copyShape(out, value)
	})
}

func (f *fakeClient) Generate(_ context.Context, req generation.Request, out generation.Shape) error {
	f.calls = append(f.calls, req.Stage)
	h, ok := f.handlers[req.Stage]
	if !ok {
		return fmt.Errorf("unexpected backend call for stage %s", req.Stage)
	}
	return h(req, out)
}

func (f *fakeClient) callCount(stage string) int {
	n := 0
	for _, s := range f.calls {
		if s == stage {
			n++
		}
	}
	return n
}

func copyShape(out generation.Shape, value generation.Shape) error {
	switch dst := out.(type) {
	case *generation.NameBatch:
		*dst = value.(generation.NameBatch)
	case *generation.NameFix:
		*dst = value.(generation.NameFix)
	case *generation.Narrative:
		*dst = value.(generation.Narrative)
	case *generation.Slogan:
		*dst = value.(generation.Slogan)
	case *generation.Greeting:
		*dst = value.(generation.Greeting)
	case *generation.TagList:
		*dst = value.(generation.TagList)
	case *generation.AnswerSet:
		*dst = value.(generation.AnswerSet)
	case *generation.DialogueBatch:
		*dst = value.(generation.DialogueBatch)
	default:
		return fmt.Errorf("unhandled shape %T", out)
	}
	return nil
}

// fakePrompter feeds canned answers and a fixed extend decision.
type fakePrompter struct {
	answers  []string
	next     int
	asked    []string
	confirm  bool
	confirms int
}

func (f *fakePrompter) Ask(question string) (string, error) {
	f.asked = append(f.asked, question)
	if f.next < len(f.answers) {
		a := f.answers[f.next]
		f.next++
		return a, nil
	}
	return "", nil
}

func (f *fakePrompter) Confirm(string) (bool, error) {
	f.confirms++
	return f.confirm, nil
}
