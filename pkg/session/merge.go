/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merge.go
Description: Merge engine for in-progress templates. Folds request and matcher
fragments into an existing template without mutating it, reporting a warning when
the merge target is ambiguous.
*/

package session

import (
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-templater/pkg/group"
	"github.com/kleascm/akaylee-templater/pkg/template"
)

var (
	// ErrNoRequestGroup is returned when a matcher has no request group to live in
	ErrNoRequestGroup = errors.New("template has no request group for matcher")
	// ErrEmptyFragment is returned for fragments that carry nothing to merge
	ErrEmptyFragment = errors.New("empty merge fragment")
)

// FragmentKind tells what a fragment adds to a template
type FragmentKind string

const (
	KindRequests FragmentKind = "requests"
	KindMatcher  FragmentKind = "matcher"
)

func (k FragmentKind) noun() string {
	if k == KindMatcher {
		return "matcher"
	}
	return "request"
}

// Fragment is a piece of template produced from a selection.
// A matcher fragment may carry the request its response belongs to, which is
// used when the target template has no request group yet.
type Fragment struct {
	Kind     FragmentKind      `json:"kind" yaml:"kind"`
	Requests []string          `json:"requests,omitempty" yaml:"requests,omitempty"`
	Matcher  *template.Matcher `json:"matcher,omitempty" yaml:"matcher,omitempty"`
}

// Warning is a non-fatal merge notice
type Warning struct {
	Kind       FragmentKind `json:"kind" yaml:"kind"`
	GroupCount int          `json:"group_count" yaml:"group_count"`
	Message    string       `json:"message" yaml:"message"`
}

func (w *Warning) String() string {
	return w.Message
}

// MergeInto returns a copy of t with f folded in.
//
//   - no groups: a new group is created from the fragment's requests
//   - one group: requests or the matcher are appended to it
//   - several groups: the first group receives the fragment and a Warning is returned
//
// t itself is never modified.
func MergeInto(t template.Template, f Fragment) (template.Template, *Warning, error) {
	if err := f.validate(); err != nil {
		return t, nil, err
	}

	out := t.Clone()

	if len(out.Requests) == 0 {
		g, err := f.newGroup()
		if err != nil {
			return t, nil, err
		}
		out.Requests = append(out.Requests, g)
		return out, nil, nil
	}

	first := &out.Requests[0]
	switch f.Kind {
	case KindRequests:
		first.Raw = append(first.Raw, f.Requests...)
	case KindMatcher:
		first.Matchers = append(first.Matchers, *f.Matcher)
		first.MatchersCondition = template.ConditionAnd
	}

	var warning *Warning
	if n := len(out.Requests); n > 1 {
		warning = &Warning{
			Kind:       f.Kind,
			GroupCount: n,
			Message:    fmt.Sprintf("The %s will be added to the first request!", f.Kind.noun()),
		}
	}
	return out, warning, nil
}

func (f Fragment) validate() error {
	switch f.Kind {
	case KindRequests:
		if len(f.Requests) == 0 {
			return fmt.Errorf("%w: no requests", ErrEmptyFragment)
		}
	case KindMatcher:
		if f.Matcher == nil {
			return fmt.Errorf("%w: no matcher", ErrEmptyFragment)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrEmptyFragment, f.Kind)
	}
	return nil
}

func (f Fragment) newGroup() (template.RequestGroup, error) {
	var matchers []template.Matcher
	if f.Kind == KindMatcher {
		if len(f.Requests) == 0 {
			return template.RequestGroup{}, ErrNoRequestGroup
		}
		matchers = []template.Matcher{*f.Matcher}
	}
	return group.NewBuilder(nil).Build(f.Requests, nil, matchers)
}
