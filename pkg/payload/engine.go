/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Payload transform engine. Inserts payload markers around selected byte
ranges of a request and decides which attack types to offer based on how many
insertion points the marked request ends up with.
*/

package payload

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kleascm/akaylee-templater/pkg/logging"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidRange is returned for ranges that are inverted, overlapping or out of bounds
	ErrInvalidRange = errors.New("invalid marker range")
	// ErrUnbalancedMarkers is returned when markers cannot be paired into start/end
	ErrUnbalancedMarkers = errors.New("unbalanced payload markers")
)

// Decision is the outcome of marking a request
type Decision struct {
	MarkedRequest string                      // Request text with all markers in place
	Markers       int                         // Total markers, pre-existing plus inserted
	Inserted      int                         // Markers inserted for the given ranges
	Transforms    []template.PayloadTransform // One per attack type offered
}

// FannedOut reports whether the user has to pick how positions are combined
func (d *Decision) FannedOut() bool {
	return len(d.Transforms) > 1
}

// Engine builds payload transforms
type Engine struct {
	defaultAttack template.AttackType
	logger        *logrus.Logger
}

// NewEngine creates an engine. An empty defaultAttack falls back to
// template.DefaultAttackType; a nil logger discards output.
func NewEngine(defaultAttack template.AttackType, logger *logrus.Logger) *Engine {
	if defaultAttack == "" {
		defaultAttack = template.DefaultAttackType
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{defaultAttack: defaultAttack, logger: logger}
}

// DefaultAttack returns the attack type used for single insertion points
func (e *Engine) DefaultAttack() template.AttackType {
	return e.defaultAttack
}

// BuildTransform marks ranges in the request and fans out attack types.
// With two markers or fewer a single transform using the default attack is
// returned; with more, one transform per attack type, all sharing the same text.
// A request without any marker yields a decision with no transforms.
func (e *Engine) BuildTransform(requestText string, ranges []template.Range) (*Decision, error) {
	marked, err := InsertMarkers(requestText, ranges)
	if err != nil {
		return nil, err
	}

	d := &Decision{
		MarkedRequest: marked,
		Markers:       CountMarkers(marked),
	}
	d.Inserted = d.Markers - CountMarkers(requestText)

	if d.Markers%2 != 0 {
		return nil, fmt.Errorf("%w: found %d markers", ErrUnbalancedMarkers, d.Markers)
	}

	switch {
	case d.Markers == 0:
		// nothing to attack
	case d.Markers <= 2:
		d.Transforms = []template.PayloadTransform{{AttackType: e.defaultAttack, MarkedRequest: marked}}
	default:
		for _, a := range template.AttackTypes() {
			d.Transforms = append(d.Transforms, template.PayloadTransform{AttackType: a, MarkedRequest: marked})
		}
	}

	e.logger.WithFields(logrus.Fields{
		"markers":    d.Markers,
		"inserted":   d.Inserted,
		"transforms": len(d.Transforms),
	}).Debug("Payload transform built")

	return d, nil
}

// InsertMarkers wraps every non-empty range in a marker pair.
// Offsets are rune offsets of text (byte offsets of the raw message, see
// httpmsg.Decode) and always refer to the unmarked input.
func InsertMarkers(text string, ranges []template.Range) (string, error) {
	runes := []rune(text)

	selected := make([]template.Range, 0, len(ranges))
	for _, r := range ranges {
		if !r.Valid() || r.End > len(runes) {
			return "", fmt.Errorf("%w: %s in text of length %d", ErrInvalidRange, r, len(runes))
		}
		if !r.Empty() {
			selected = append(selected, r)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Start < selected[j].Start })
	for i := 1; i < len(selected); i++ {
		if selected[i].Start < selected[i-1].End {
			return "", fmt.Errorf("%w: %s overlaps %s", ErrInvalidRange, selected[i], selected[i-1])
		}
	}

	var b strings.Builder
	b.Grow(len(text) + 4*len(selected))
	last := 0
	for _, r := range selected {
		b.WriteString(string(runes[last:r.Start]))
		b.WriteRune(template.Marker)
		b.WriteString(string(runes[r.Start:r.End]))
		b.WriteRune(template.Marker)
		last = r.End
	}
	b.WriteString(string(runes[last:]))
	return b.String(), nil
}

// CountMarkers returns the number of marker tokens in text
func CountMarkers(text string) int {
	return strings.Count(text, string(template.Marker))
}

// StripMarkers removes every marker token
func StripMarkers(text string) string {
	return strings.ReplaceAll(text, string(template.Marker), "")
}
