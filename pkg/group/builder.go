/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: builder.go
Description: Request group builder. Assembles raw requests, an optional payload
transform and response matchers into a single request group of a template.
*/

package group

import (
	"errors"

	"github.com/kleascm/akaylee-templater/pkg/httpmsg"
	"github.com/kleascm/akaylee-templater/pkg/logging"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/sirupsen/logrus"
)

// ErrNoRequests is returned when a group would hold no request
var ErrNoRequests = errors.New("request group needs at least one request")

// Builder assembles request groups
type Builder struct {
	logger *logrus.Logger
}

// NewBuilder creates a builder; a nil logger discards output
func NewBuilder(logger *logrus.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{logger: logger}
}

// Build creates a group. When transform is set its marked request replaces
// raw as the group content; otherwise raw is kept verbatim and in order.
// Matchers are copied and combined with template.ConditionAnd.
func (b *Builder) Build(raw []string, transform *template.PayloadTransform, matchers []template.Matcher) (template.RequestGroup, error) {
	var g template.RequestGroup

	switch {
	case transform != nil:
		t := *transform
		g.Transform = &t
		g.Raw = []string{t.MarkedRequest}
	case len(raw) == 0:
		return template.RequestGroup{}, ErrNoRequests
	default:
		g.Raw = append([]string(nil), raw...)
	}

	if len(matchers) > 0 {
		g.Matchers = append([]template.Matcher(nil), matchers...)
		g.MatchersCondition = template.ConditionAnd
	}

	b.logger.WithFields(logrus.Fields{
		"requests":  len(g.Raw),
		"matchers":  len(g.Matchers),
		"transform": g.Transform != nil,
	}).Debug("Request group built")

	return g, nil
}

// Requests returns the raw text of every non-empty message, in order
func Requests(messages ...[]byte) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		if len(m) == 0 {
			continue
		}
		out = append(out, httpmsg.Decode(m))
	}
	return out
}
