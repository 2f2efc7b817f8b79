/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: action.go
Description: Actions offered for a selection. An action is a named, deferred effect
that either opens a new template or merges a fragment into an existing session.
*/

package actions

import (
	"errors"

	"github.com/kleascm/akaylee-templater/pkg/session"
	"github.com/kleascm/akaylee-templater/pkg/template"
)

// Kind classifies what an action does
type Kind string

const (
	KindGenerate   Kind = "generate"
	KindAddRequest Kind = "add_request"
	KindAddMatcher Kind = "add_matcher"
)

// Labels and menus shown to the user
const (
	LabelGenerate         = "Generate template"
	LabelGenerateIntruder = "Generate Intruder Template"
	MenuAddRequest        = "Add request to"
	MenuAddMatcher        = "Add matcher to"
)

// Outcome is the result of invoking an action
type Outcome struct {
	Session  string            // Session that now holds the template
	Template template.Template // Template after the effect
	Warning  *session.Warning  // Set when a merge target was ambiguous
}

// Action is one choice offered for a selection. Nothing happens until Invoke.
type Action struct {
	Label      string // Item text; for merges the session name
	Kind       Kind
	Menu       string              // Parent menu for merge actions
	Session    string              // Merge target, empty for generate actions
	AttackType template.AttackType // Set for payload actions

	invoke func() (*Outcome, error)
}

// Title is the label qualified by its menu
func (a Action) Title() string {
	if a.Menu == "" {
		return a.Label
	}
	return a.Menu + " " + a.Label
}

// Invoke runs the action's effect
func (a Action) Invoke() (*Outcome, error) {
	if a.invoke == nil {
		return nil, errors.New("action has no effect")
	}
	return a.invoke()
}
