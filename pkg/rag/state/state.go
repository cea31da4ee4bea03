// Package state holds the record threaded through one question-answering run.
//
// Question, SearchQuery and DocumentPortions are write-once: a stage may fill
// a field that is absent but never replace one that is present. All writes go
// through State.Apply so the rule lives in one place.
package state

import (
	"errors"
	"fmt"

	"kb-agent/pkg/llm"

	"github.com/google/uuid"
)

// Stage is the last state-machine stage a run has reached.
type Stage string

const (
	StageStart               Stage = "START"
	StageQueryPlanned        Stage = "QUERY_PLANNED"
	StageRetrievedAndGrouped Stage = "RETRIEVED_AND_GROUPED"
	StageAnswered            Stage = "ANSWERED"
)

var stageOrder = map[Stage]int{
	StageStart:               0,
	StageQueryPlanned:        1,
	StageRetrievedAndGrouped: 2,
	StageAnswered:            3,
}

var (
	ErrFieldAlreadySet = errors.New("state: field already set")
	ErrNoQuestion      = errors.New("state: no question in conversation")
)

// State is the unit of data threaded through all pipeline stages.
//
// An empty string means Question/SearchQuery are absent. DocumentPortions is
// absent only when nil; a retrieval that found nothing stores an empty,
// non-nil slice and is not repeated.
type State struct {
	ID               string        `json:"id"`
	Stage            Stage         `json:"stage"`
	Messages         []llm.Message `json:"messages"`
	Question         string        `json:"question,omitempty"`
	SearchQuery      string        `json:"search_query,omitempty"`
	DocumentPortions []string      `json:"document_portions"`
}

// New starts a run whose sole message is the user's question.
func New(question string) *State {
	return &State{
		ID:       uuid.NewString(),
		Stage:    StageStart,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: question}},
	}
}

func (s *State) HasQuestion() bool         { return s.Question != "" }
func (s *State) HasSearchQuery() bool      { return s.SearchQuery != "" }
func (s *State) HasDocumentPortions() bool { return s.DocumentPortions != nil }

// LastMessage returns the most recent conversation entry.
func (s *State) LastMessage() (llm.Message, bool) {
	if len(s.Messages) == 0 {
		return llm.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// IsAnswered reports whether the terminal answer has been appended.
func (s *State) IsAnswered() bool {
	if s.Stage == StageAnswered {
		return true
	}
	last, ok := s.LastMessage()
	return ok && last.Role == llm.RoleAssistant && s.HasDocumentPortions()
}

// ResolveQuestion returns the stored question, or derives it from the last
// message without storing it.
func (s *State) ResolveQuestion() (string, error) {
	if s.HasQuestion() {
		return s.Question, nil
	}
	last, ok := s.LastMessage()
	if !ok || last.Content == "" {
		return "", ErrNoQuestion
	}
	return last.Content, nil
}

// Update is the output of one stage. Zero values mean "no change".
type Update struct {
	Question         string
	SearchQuery      string
	DocumentPortions []string
	Messages         []llm.Message
	Stage            Stage
}

// Apply merges u into s. Absent fields are filled, messages are appended and
// the stage only moves forward. Attempts to replace a present field leave it
// untouched and are reported as ErrFieldAlreadySet.
func (s *State) Apply(u Update) error {
	var errs []error

	if u.Question != "" {
		if s.HasQuestion() {
			errs = append(errs, fmt.Errorf("%w: question", ErrFieldAlreadySet))
		} else {
			s.Question = u.Question
		}
	}

	if u.SearchQuery != "" {
		if s.HasSearchQuery() {
			errs = append(errs, fmt.Errorf("%w: search_query", ErrFieldAlreadySet))
		} else {
			s.SearchQuery = u.SearchQuery
		}
	}

	if u.DocumentPortions != nil {
		if s.HasDocumentPortions() {
			errs = append(errs, fmt.Errorf("%w: document_portions", ErrFieldAlreadySet))
		} else {
			s.DocumentPortions = append([]string{}, u.DocumentPortions...)
		}
	}

	s.Messages = append(s.Messages, u.Messages...)

	if u.Stage != "" && stageOrder[u.Stage] > stageOrder[s.Stage] {
		s.Stage = u.Stage
	}

	return errors.Join(errs...)
}

// Clone returns a deep copy, so stores never share slices with a live run.
func (s *State) Clone() *State {
	c := *s
	c.Messages = append([]llm.Message(nil), s.Messages...)
	if s.DocumentPortions != nil {
		c.DocumentPortions = append([]string{}, s.DocumentPortions...)
	}
	return &c
}
