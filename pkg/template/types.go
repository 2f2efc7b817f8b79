/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core data model of the template generator. Defines templates, request
groups, payload transforms, matchers and byte ranges shared by the payload engine,
matcher extraction, group builder, session registry and action resolver.
*/

package template

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Marker delimits payload insertion points inside a request
const Marker = '§'

// Default metadata of a freshly generated template
const (
	DefaultName     = "Template Name"
	DefaultSeverity = SeverityInfo
	ConditionAnd    = "and"
)

// Range is a half-open byte interval [Start, End) into a raw message
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Empty reports whether the range selects nothing
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Len returns the number of selected bytes
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start
}

// Valid reports whether Start <= End and both are non-negative
func (r Range) Valid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Severity of the finding a template reports
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AttackType selects how multiple payload positions are combined
type AttackType string

const (
	AttackBatteringRam AttackType = "batteringram" // one payload set, same value at every position
	AttackSniper       AttackType = "sniper"       // each position independently, one at a time
	AttackPitchfork    AttackType = "pitchfork"    // positions advance together
	AttackClusterBomb  AttackType = "clusterbomb"  // every combination of every position
)

// DefaultAttackType is used when a request has a single insertion point
const DefaultAttackType = AttackBatteringRam

// AttackTypes returns the fixed enumeration in presentation order
func AttackTypes() []AttackType {
	return []AttackType{AttackBatteringRam, AttackSniper, AttackPitchfork, AttackClusterBomb}
}

// Description returns a human readable summary of the attack type
func (a AttackType) Description() string {
	switch a {
	case AttackBatteringRam:
		return "Single payload set placed at every marked position at once"
	case AttackSniper:
		return "Each marked position is attacked independently"
	case AttackPitchfork:
		return "One payload set per position, advanced in lockstep"
	case AttackClusterBomb:
		return "Every combination of payloads across all positions"
	default:
		return "unknown attack type"
	}
}

// ParseAttackType converts a name into an AttackType
func ParseAttackType(s string) (AttackType, error) {
	for _, a := range AttackTypes() {
		if strings.EqualFold(string(a), strings.TrimSpace(s)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown attack type: %q", s)
}

// PayloadTransform is an intruder-style request with marked insertion points
type PayloadTransform struct {
	AttackType    AttackType `json:"attack_type" yaml:"attack_type"`
	MarkedRequest string     `json:"marked_request" yaml:"marked_request"`
}

// Markers counts marker tokens in the marked request
func (p PayloadTransform) Markers() int {
	return strings.Count(p.MarkedRequest, string(Marker))
}

// Parameters names one payload variable per marker pair
func (p PayloadTransform) Parameters() []string {
	params := make([]string, 0, p.Markers()/2)
	for i := 1; i <= p.Markers()/2; i++ {
		params = append(params, fmt.Sprintf("param%d", i))
	}
	return params
}

// Placeholders rewrites every §value§ pair to {{paramN}}.
// The original values are returned in marker order.
func (p PayloadTransform) Placeholders() (string, []string) {
	var (
		out    strings.Builder
		values []string
		cur    strings.Builder
		open   bool
	)
	for _, r := range p.MarkedRequest {
		if r != Marker {
			if open {
				cur.WriteRune(r)
			} else {
				out.WriteRune(r)
			}
			continue
		}
		if open {
			values = append(values, cur.String())
			fmt.Fprintf(&out, "{{param%d}}", len(values))
			cur.Reset()
		}
		open = !open
	}
	if open {
		// dangling marker, keep the text as it was
		out.WriteRune(Marker)
		out.WriteString(cur.String())
	}
	return out.String(), values
}

// Matcher asserts response content and status code
type Matcher struct {
	Text        string `json:"text" yaml:"text"`               // Extracted response text
	StatusCode  int    `json:"status_code" yaml:"status_code"` // Status of the response the text came from
	SourceRange Range  `json:"source_range" yaml:"source_range"`
	Part        string `json:"part" yaml:"part"` // body, header or all
}

// RequestGroup is one request block of a template
type RequestGroup struct {
	Raw               []string          `json:"raw" yaml:"raw"`
	Transform         *PayloadTransform `json:"transform,omitempty" yaml:"transform,omitempty"`
	Matchers          []Matcher         `json:"matchers,omitempty" yaml:"matchers,omitempty"`
	MatchersCondition string            `json:"matchers_condition,omitempty" yaml:"matchers_condition,omitempty"`
}

// Clone returns a deep copy of the group
func (g RequestGroup) Clone() RequestGroup {
	c := RequestGroup{
		Raw:               append([]string(nil), g.Raw...),
		Matchers:          append([]Matcher(nil), g.Matchers...),
		MatchersCondition: g.MatchersCondition,
	}
	if g.Transform != nil {
		t := *g.Transform
		c.Transform = &t
	}
	return c
}

// Info is the user editable metadata block
type Info struct {
	Name     string   `json:"name" yaml:"name"`
	Author   string   `json:"author" yaml:"author"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Template is the in-progress document being composed
type Template struct {
	ID        string         `json:"id" yaml:"id"`
	Info      Info           `json:"info" yaml:"info"`
	TargetURL string         `json:"target_url,omitempty" yaml:"target_url,omitempty"`
	Requests  []RequestGroup `json:"requests" yaml:"requests"`
}

// New creates a template with default metadata
func New(author, targetURL string, groups ...RequestGroup) Template {
	t := Template{
		ID: NewID(),
		Info: Info{
			Name:     DefaultName,
			Author:   author,
			Severity: DefaultSeverity,
		},
		TargetURL: targetURL,
	}
	for _, g := range groups {
		t.Requests = append(t.Requests, g.Clone())
	}
	return t
}

// NewID returns a fresh template identifier
func NewID() string {
	return "template-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Empty reports whether the template has no request groups
func (t Template) Empty() bool {
	return len(t.Requests) == 0
}

// Clone returns a deep copy of the template
func (t Template) Clone() Template {
	c := t
	c.Requests = nil
	for _, g := range t.Requests {
		c.Requests = append(c.Requests, g.Clone())
	}
	return c
}
