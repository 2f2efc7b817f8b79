/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: registry.go
Description: Session registry. Tracks the open template editing sessions in the order
they were opened, lets callers read and replace each session's template and serializes
merges per session.
*/

package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kleascm/akaylee-templater/pkg/logging"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrNoTemplate      = errors.New("session has no template")
)

// AutoNamePrefix names sessions opened without an explicit name
const AutoNamePrefix = "Template"

// Session is one editing context
type Session struct {
	Name string

	mu       sync.Mutex
	template *template.Template
}

// Summary describes a session for listing
type Summary struct {
	Name        string `json:"name" yaml:"name"`
	HasTemplate bool   `json:"has_template" yaml:"has_template"`
}

// Record is the persisted form of a session
type Record struct {
	Name     string             `json:"name" yaml:"name"`
	Template *template.Template `json:"template,omitempty" yaml:"template,omitempty"`
}

// Registry holds the open sessions
type Registry struct {
	mu       sync.RWMutex
	order    []string
	sessions map[string]*Session
	opened   int
	logger   *logrus.Logger
}

// NewRegistry creates an empty registry; a nil logger discards output
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Create adds an empty session under name
func (r *Registry) Create(name string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.add(name)
	if err != nil {
		return nil, err
	}
	r.logger.WithField("session", name).Debug("Session created")
	return s, nil
}

// Open adds a session holding t under the next free "Template N" name
func (r *Registry) Open(t template.Template) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var name string
	for {
		r.opened++
		name = fmt.Sprintf("%s %d", AutoNamePrefix, r.opened)
		if _, taken := r.sessions[name]; !taken {
			break
		}
	}

	s, _ := r.add(name)
	c := t.Clone()
	s.template = &c

	r.logger.WithFields(logrus.Fields{
		"session":  name,
		"template": t.ID,
		"groups":   len(t.Requests),
	}).Debug("Session opened")
	return name
}

// add registers a session; callers hold r.mu
func (r *Registry) add(name string) (*Session, error) {
	if name == "" {
		return nil, errors.New("session name is empty")
	}
	if _, ok := r.sessions[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionExists, name)
	}
	s := &Session{Name: name}
	r.sessions[name] = s
	r.order = append(r.order, name)
	return s, nil
}

// Get returns the session called name
func (r *Registry) Get(name string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, name)
	}
	return s, nil
}

// Template returns a copy of the session's template
func (r *Registry) Template(name string) (template.Template, error) {
	s, err := r.Get(name)
	if err != nil {
		return template.Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.template == nil {
		return template.Template{}, fmt.Errorf("%w: %q", ErrNoTemplate, name)
	}
	return s.template.Clone(), nil
}

// SetTemplate replaces the session's template
func (r *Registry) SetTemplate(name string, t template.Template) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := t.Clone()
	s.template = &c
	return nil
}

// Merge folds f into the session's template and stores the result.
// Merges on the same session are serialized.
func (r *Registry) Merge(name string, f Fragment) (template.Template, *Warning, error) {
	s, err := r.Get(name)
	if err != nil {
		return template.Template{}, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.template == nil {
		return template.Template{}, nil, fmt.Errorf("%w: %q", ErrNoTemplate, name)
	}

	merged, warning, err := MergeInto(*s.template, f)
	if err != nil {
		return template.Template{}, nil, fmt.Errorf("failed to merge into %q: %w", name, err)
	}
	s.template = &merged

	entry := r.logger.WithFields(logrus.Fields{
		"session": name,
		"kind":    f.Kind,
		"groups":  len(merged.Requests),
	})
	if warning != nil {
		entry.Warn(warning.Message)
	} else {
		entry.Debug("Fragment merged")
	}

	return merged.Clone(), warning, nil
}

// Close removes the session called name
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, name)
	}
	delete(r.sessions, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.WithFields(logrus.Fields{
		"session":   name,
		"remaining": len(r.order),
	}).Debug("Session closed")
	return nil
}

// List returns the sessions in the order they were opened
func (r *Registry) List() []Summary {
	sessions := r.ordered()
	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, Summary{Name: s.Name, HasTemplate: s.template != nil})
		s.mu.Unlock()
	}
	return out
}

func (r *Registry) ordered() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.order))
	for _, n := range r.order {
		sessions = append(sessions, r.sessions[n])
	}
	return sessions
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Empty reports whether no session is open
func (r *Registry) Empty() bool {
	return r.Len() == 0
}

// Records snapshots every session for persistence
func (r *Registry) Records() []Record {
	sessions := r.ordered()
	out := make([]Record, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		rec := Record{Name: s.Name}
		if s.template != nil {
			c := s.template.Clone()
			rec.Template = &c
		}
		s.mu.Unlock()
		out = append(out, rec)
	}
	return out
}

// Restore builds a registry from persisted records
func Restore(records []Record, logger *logrus.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for _, rec := range records {
		s, err := r.Create(rec.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to restore session: %w", err)
		}
		if rec.Template != nil {
			c := rec.Template.Clone()
			s.template = &c
		}
	}
	return r, nil
}
