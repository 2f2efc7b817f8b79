/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: matcher.go
Description: Matcher extraction from captured responses. Turns a highlighted byte
range (or the whole body when nothing is highlighted) into a content matcher paired
with the response status code.
*/

package matcher

import (
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-templater/pkg/httpmsg"
	"github.com/kleascm/akaylee-templater/pkg/template"
)

// ErrRangeOutOfBounds is returned when a range does not fit the response
var ErrRangeOutOfBounds = errors.New("range out of response bounds")

// Parts of a response a matcher can look at
const (
	PartBody   = "body"
	PartHeader = "header"
	PartAll    = "all"
)

// Rule types a matcher compiles to
const (
	RuleWord   = "word"
	RuleStatus = "status"
)

// Rule is a single matching rule. A matcher compiles to a word rule and a
// status rule that must both hold.
type Rule struct {
	Type   string   `json:"type" yaml:"type"`
	Part   string   `json:"part,omitempty" yaml:"part,omitempty"`
	Words  []string `json:"words,omitempty" yaml:"words,omitempty"`
	Status []int    `json:"status,omitempty" yaml:"status,omitempty"`
}

// Extract builds a matcher from a response.
// With an empty range the whole body, from bodyOffset to the end, is taken.
// Otherwise the selected bytes are taken as-is, wherever they fall.
func Extract(response []byte, bodyOffset int, r template.Range, status int) (template.Matcher, error) {
	if !r.Valid() || r.End > len(response) {
		return template.Matcher{}, fmt.Errorf("%w: %s in response of length %d", ErrRangeOutOfBounds, r, len(response))
	}

	bodyOffset = clamp(bodyOffset, 0, len(response))

	if r.Empty() {
		return template.Matcher{
			Text:        httpmsg.Decode(response[bodyOffset:]),
			StatusCode:  status,
			SourceRange: template.Range{Start: bodyOffset, End: len(response)},
			Part:        PartBody,
		}, nil
	}

	return template.Matcher{
		Text:        httpmsg.Decode(response[r.Start:r.End]),
		StatusCode:  status,
		SourceRange: r,
		Part:        partOf(r, bodyOffset),
	}, nil
}

// FromResponse locates the body and status code itself before extracting
func FromResponse(response []byte, r template.Range) (template.Matcher, error) {
	status, err := httpmsg.StatusCode(response)
	if err != nil {
		return template.Matcher{}, err
	}
	return Extract(response, httpmsg.BodyOffset(response), r, status)
}

// Compile returns the rules of a matcher, combined with template.ConditionAnd
func Compile(m template.Matcher) []Rule {
	rules := make([]Rule, 0, 2)
	if m.Text != "" {
		part := m.Part
		if part == "" {
			part = PartBody
		}
		rules = append(rules, Rule{Type: RuleWord, Part: part, Words: []string{m.Text}})
	}
	if m.StatusCode != 0 {
		rules = append(rules, Rule{Type: RuleStatus, Status: []int{m.StatusCode}})
	}
	return rules
}

func partOf(r template.Range, bodyOffset int) string {
	switch {
	case r.End <= bodyOffset:
		return PartHeader
	case r.Start >= bodyOffset:
		return PartBody
	default:
		return PartAll
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
