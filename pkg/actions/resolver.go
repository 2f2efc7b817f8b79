/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: resolver.go
Description: Action resolver. Classifies a selection (several requests, an intruder
request, a request range or a response range), builds the template fragments it
implies and returns the ordered list of actions the user can pick from. Resolution
never changes the registry; only invoking an action does.
*/

package actions

import (
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-templater/pkg/group"
	"github.com/kleascm/akaylee-templater/pkg/httpmsg"
	"github.com/kleascm/akaylee-templater/pkg/logging"
	"github.com/kleascm/akaylee-templater/pkg/matcher"
	"github.com/kleascm/akaylee-templater/pkg/payload"
	"github.com/kleascm/akaylee-templater/pkg/session"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/sirupsen/logrus"
)

// Config holds resolver settings
type Config struct {
	Author        string              // Author written into generated templates
	DefaultAttack template.AttackType // Attack type for a single insertion point
	Logger        *logrus.Logger      // nil discards output
}

// Resolver turns selections into actions
type Resolver struct {
	author  string
	engine  *payload.Engine
	builder *group.Builder
	logger  *logrus.Logger
}

// NewResolver creates a resolver
func NewResolver(config Config) *Resolver {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		author:  config.Author,
		engine:  payload.NewEngine(config.DefaultAttack, logger),
		builder: group.NewBuilder(logger),
		logger:  logger,
	}
}

// Resolve returns the actions available for sel, in presentation order:
// generate actions first, then merge actions in session order.
// reg may be nil, in which case no merge actions are offered and generated
// templates are returned without being opened anywhere.
func (r *Resolver) Resolve(sel Selection, reg *session.Registry) ([]Action, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	infos := make([]*httpmsg.RequestInfo, 0, len(sel.Targets))
	for i, t := range sel.Targets {
		info, err := httpmsg.ParseRequest(t.Request, t.URL, t.Secure)
		if err != nil {
			return nil, fmt.Errorf("%w: target %d: %w", ErrMalformedTarget, i, err)
		}
		infos = append(infos, info)
	}
	targetURL := httpmsg.RootURL(infos[0].URL)

	var (
		actions []Action
		err     error
	)
	switch {
	case sel.Multi():
		actions, err = r.resolveMulti(sel, targetURL, reg)
	case sel.Tool == ToolIntruder:
		actions, err = r.resolveIntruder(sel.Targets[0], targetURL, reg)
	case sel.view() == ViewResponse:
		actions, err = r.resolveResponse(sel.Targets[0], sel.Range, targetURL, reg)
	default:
		actions, err = r.resolveRequest(sel.Targets[0], sel.Range, targetURL, reg)
	}
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"targets": len(sel.Targets),
		"view":    sel.view(),
		"tool":    sel.Tool,
		"range":   sel.Range.String(),
		"attack":  r.engine.DefaultAttack(),
		"actions": len(actions),
	}).Debug("Selection resolved")

	return actions, nil
}

// resolveMulti offers one template holding every request, in selection order
func (r *Resolver) resolveMulti(sel Selection, targetURL string, reg *session.Registry) ([]Action, error) {
	messages := make([][]byte, 0, len(sel.Targets))
	for _, t := range sel.Targets {
		messages = append(messages, t.Request)
	}
	raw := group.Requests(messages...)

	g, err := r.builder.Build(raw, nil, nil)
	if err != nil {
		return nil, err
	}

	actions := []Action{r.generate(LabelGenerate, "", targetURL, g, reg)}
	actions = append(actions, r.merges(reg, session.Fragment{Kind: session.KindRequests, Requests: raw})...)
	return actions, nil
}

// resolveIntruder marks nothing new; it takes the markers already in the request
func (r *Resolver) resolveIntruder(t Target, targetURL string, reg *session.Registry) ([]Action, error) {
	request := httpmsg.Decode(t.Request)

	decision, err := r.engine.BuildTransform(request, nil)
	if err != nil {
		return nil, err
	}

	if len(decision.Transforms) == 0 {
		g, err := r.builder.Build([]string{request}, nil, nil)
		if err != nil {
			return nil, err
		}
		return []Action{r.generate(LabelGenerate, "", targetURL, g, reg)}, nil
	}
	return r.payloadActions(LabelGenerate, decision, targetURL, reg)
}

func (r *Resolver) resolveRequest(t Target, rng template.Range, targetURL string, reg *session.Registry) ([]Action, error) {
	if rng.End > len(t.Request) {
		return nil, fmt.Errorf("%w: %s in request of length %d", ErrInvalidRange, rng, len(t.Request))
	}

	request := httpmsg.Decode(t.Request)
	g, err := r.builder.Build([]string{request}, nil, nil)
	if err != nil {
		return nil, err
	}
	actions := []Action{r.generate(LabelGenerate, "", targetURL, g, reg)}

	if !rng.Empty() {
		decision, err := r.engine.BuildTransform(request, []template.Range{rng})
		switch {
		case errors.Is(err, payload.ErrInvalidRange):
			return nil, fmt.Errorf("%w: %w", ErrInvalidRange, err)
		case errors.Is(err, payload.ErrUnbalancedMarkers):
			// the plain request is still usable
			r.logger.WithError(err).Warn("Payload action skipped")
		case err != nil:
			return nil, err
		default:
			payloadActions, err := r.payloadActions(LabelGenerateIntruder, decision, targetURL, reg)
			if err != nil {
				return nil, err
			}
			actions = append(actions, payloadActions...)
		}
	}

	actions = append(actions, r.merges(reg, session.Fragment{Kind: session.KindRequests, Requests: []string{request}})...)
	return actions, nil
}

func (r *Resolver) resolveResponse(t Target, rng template.Range, targetURL string, reg *session.Registry) ([]Action, error) {
	if !t.HasResponse() {
		return nil, fmt.Errorf("%w: no response captured", ErrMalformedTarget)
	}

	m, err := matcher.FromResponse(t.Response, rng)
	switch {
	case errors.Is(err, matcher.ErrRangeOutOfBounds):
		return nil, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrMalformedTarget, err)
	}

	r.logger.WithFields(logrus.Fields{
		"status": m.StatusCode,
		"part":   m.Part,
		"length": len(m.Text),
	}).Debug("Matcher extracted")

	request := httpmsg.Decode(t.Request)
	g, err := r.builder.Build([]string{request}, nil, []template.Matcher{m})
	if err != nil {
		return nil, err
	}

	actions := []Action{r.generate(LabelGenerate, "", targetURL, g, reg)}
	actions = append(actions, r.merges(reg, session.Fragment{
		Kind:     session.KindMatcher,
		Requests: []string{request},
		Matcher:  &m,
	})...)
	return actions, nil
}

// payloadActions offers one generate action per transform. With several,
// the attack type is appended to the label.
func (r *Resolver) payloadActions(label string, d *payload.Decision, targetURL string, reg *session.Registry) ([]Action, error) {
	actions := make([]Action, 0, len(d.Transforms))
	for i := range d.Transforms {
		tr := d.Transforms[i]
		g, err := r.builder.Build(nil, &tr, nil)
		if err != nil {
			return nil, err
		}

		l := label
		if d.FannedOut() {
			l = fmt.Sprintf("%s - %s", label, tr.AttackType)
		}
		actions = append(actions, r.generate(l, tr.AttackType, targetURL, g, reg))
	}
	return actions, nil
}

// generate opens a new session holding a template built around g
func (r *Resolver) generate(label string, attack template.AttackType, targetURL string, g template.RequestGroup, reg *session.Registry) Action {
	author := r.author
	return Action{
		Label:      label,
		Kind:       KindGenerate,
		AttackType: attack,
		invoke: func() (*Outcome, error) {
			t := template.New(author, targetURL, g)
			out := &Outcome{Template: t}
			if reg != nil {
				out.Session = reg.Open(t)
			}

			r.logger.WithFields(logrus.Fields{
				"session":  out.Session,
				"template": t.ID,
				"attack":   attack,
			}).Info("Template generated")
			return out, nil
		},
	}
}

// merges offers f to every session that already holds a template
func (r *Resolver) merges(reg *session.Registry, f session.Fragment) []Action {
	if reg == nil {
		return nil
	}

	kind, menu := KindAddRequest, MenuAddRequest
	if f.Kind == session.KindMatcher {
		kind, menu = KindAddMatcher, MenuAddMatcher
	}

	var actions []Action
	for _, s := range reg.List() {
		if !s.HasTemplate {
			continue
		}
		name := s.Name
		actions = append(actions, Action{
			Label:   name,
			Kind:    kind,
			Menu:    menu,
			Session: name,
			invoke: func() (*Outcome, error) {
				t, warning, err := reg.Merge(name, f)
				if err != nil {
					return nil, err
				}
				return &Outcome{Session: name, Template: t, Warning: warning}, nil
			},
		})
	}
	return actions
}
