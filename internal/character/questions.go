package character

import (
	"encoding/json"
	"fmt"
	"os"
)

// Well-known base question keys the pipeline reads directly.
const (
	QuestionKeyName   = "name"
	QuestionKeyGender = "gender"
)

// Question is one base-fact prompt, asked in file order.
type Question struct {
	Key  string
	Text string
}

// LoadQuestions reads the base question file: a JSON object mapping
// question key to prompt text. Object order is preserved, since the
// questions are asked in file order.
func LoadQuestions(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open question file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse question file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("question file must contain a JSON object")
	}

	var questions []Question
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse question file: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("question file has a non-string key")
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return nil, fmt.Errorf("question %q must map to a string: %w", key, err)
		}
		questions = append(questions, Question{Key: key, Text: text})
	}
	return questions, nil
}
