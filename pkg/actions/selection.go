/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: selection.go
Description: Selection model for the action resolver. A selection is one or more
captured request/response pairs, an optional highlighted byte range, the message view
the range was made in and the tool the selection came from.
*/

package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kleascm/akaylee-templater/pkg/template"
)

var (
	// ErrEmptySelection is returned when a selection holds no target
	ErrEmptySelection = errors.New("selection has no targets")
	// ErrInvalidRange is returned for inverted ranges or ranges outside the message
	ErrInvalidRange = errors.New("invalid selection range")
	// ErrMalformedTarget is returned when a target cannot be read as HTTP
	ErrMalformedTarget = errors.New("malformed target")
	// ErrUnknownView is returned for views other than request or response
	ErrUnknownView = errors.New("unknown message view")
)

// ViewKind is the message view a selection was made in
type ViewKind string

const (
	ViewRequest  ViewKind = "request"
	ViewResponse ViewKind = "response"
)

// ToolType is the tool a selection originated from
type ToolType string

const (
	ToolUnknown   ToolType = ""
	ToolProxy     ToolType = "proxy"
	ToolRepeater  ToolType = "repeater"
	ToolScanner   ToolType = "scanner"
	ToolIntruder  ToolType = "intruder"
	ToolSpider    ToolType = "spider"
	ToolSequencer ToolType = "sequencer"
	ToolExtension ToolType = "extension"
	ToolTarget    ToolType = "target"
	ToolLogger    ToolType = "logger"
)

// ParseToolType converts a tool name, case-insensitively
func ParseToolType(s string) (ToolType, error) {
	t := ToolType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ToolUnknown, ToolProxy, ToolRepeater, ToolScanner, ToolIntruder,
		ToolSpider, ToolSequencer, ToolExtension, ToolTarget, ToolLogger:
		return t, nil
	}
	return ToolUnknown, fmt.Errorf("unknown tool type: %q", s)
}

// Target is one captured request with its optional response
type Target struct {
	Request  []byte `json:"request" yaml:"request"`
	Response []byte `json:"response,omitempty" yaml:"response,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`       // Absolute URL reported by the capturing tool
	Secure   bool   `json:"secure,omitempty" yaml:"secure,omitempty"` // Use https when the URL comes from the Host header
}

// HasResponse reports whether a response was captured
func (t Target) HasResponse() bool {
	return len(t.Response) > 0
}

// Selection is what the user highlighted before asking for actions
type Selection struct {
	Targets []Target       `json:"targets" yaml:"targets"`
	Range   template.Range `json:"range" yaml:"range"`
	View    ViewKind       `json:"view,omitempty" yaml:"view,omitempty"` // Ignored with several targets; empty means request
	Tool    ToolType       `json:"tool,omitempty" yaml:"tool,omitempty"`
}

// Multi reports whether several targets are selected
func (s Selection) Multi() bool {
	return len(s.Targets) > 1
}

// Validate checks the selection's structural invariants
func (s Selection) Validate() error {
	if len(s.Targets) == 0 {
		return ErrEmptySelection
	}
	if !s.Range.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRange, s.Range)
	}
	if s.Multi() {
		return nil
	}
	switch s.View {
	case "", ViewRequest, ViewResponse:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownView, s.View)
}

func (s Selection) view() ViewKind {
	if s.View == "" {
		return ViewRequest
	}
	return s.View
}
