/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: registry_test.go
Description: Tests for the session registry, including concurrent merges.
*/

package session_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/kleascm/akaylee-templater/pkg/session"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	reg := session.NewRegistry(nil)
	assert.True(t, reg.Empty())

	_, err := reg.Create("scratch")
	require.NoError(t, err)
	_, err = reg.Create("scratch")
	assert.ErrorIs(t, err, session.ErrSessionExists)

	first := reg.Open(template.New("klea", "", template.RequestGroup{Raw: []string{"R"}}))
	second := reg.Open(template.New("klea", ""))
	assert.Equal(t, "Template 1", first)
	assert.Equal(t, "Template 2", second)

	assert.Equal(t, []session.Summary{
		{Name: "scratch", HasTemplate: false},
		{Name: "Template 1", HasTemplate: true},
		{Name: "Template 2", HasTemplate: true},
	}, reg.List())
	assert.Equal(t, 3, reg.Len())

	_, err = reg.Template("scratch")
	assert.ErrorIs(t, err, session.ErrNoTemplate)

	require.NoError(t, reg.Close("Template 1"))
	assert.ErrorIs(t, reg.Close("Template 1"), session.ErrSessionNotFound)
	require.NoError(t, reg.Close("scratch"))
	require.NoError(t, reg.Close("Template 2"))
	assert.True(t, reg.Empty())

	// numbering continues after close
	assert.Equal(t, "Template 3", reg.Open(template.Template{}))
}

func TestRegistryOpenSkipsTakenNames(t *testing.T) {
	reg := session.NewRegistry(nil)
	_, err := reg.Create("Template 1")
	require.NoError(t, err)

	assert.Equal(t, "Template 2", reg.Open(template.Template{}))
}

func TestRegistryTemplateIsCopy(t *testing.T) {
	reg := session.NewRegistry(nil)
	name := reg.Open(template.Template{Requests: []template.RequestGroup{{Raw: []string{"R"}}}})

	tpl, err := reg.Template(name)
	require.NoError(t, err)
	tpl.Requests[0].Raw[0] = "changed"

	again, err := reg.Template(name)
	require.NoError(t, err)
	assert.Equal(t, "R", again.Requests[0].Raw[0])

	require.NoError(t, reg.SetTemplate(name, tpl))
	again, err = reg.Template(name)
	require.NoError(t, err)
	assert.Equal(t, "changed", again.Requests[0].Raw[0])

	assert.ErrorIs(t, reg.SetTemplate("missing", tpl), session.ErrSessionNotFound)
}

func TestRegistryMerge(t *testing.T) {
	reg := session.NewRegistry(nil)
	name := reg.Open(template.Template{Requests: []template.RequestGroup{{Raw: []string{"A"}}, {Raw: []string{"B"}}}})

	out, warning, err := reg.Merge(name, session.Fragment{Kind: session.KindRequests, Requests: []string{"C"}})
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, []string{"A", "C"}, out.Requests[0].Raw)

	stored, err := reg.Template(name)
	require.NoError(t, err)
	assert.Equal(t, out, stored)

	_, _, err = reg.Merge("missing", session.Fragment{Kind: session.KindRequests, Requests: []string{"C"}})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = reg.Create("blank")
	require.NoError(t, err)
	_, _, err = reg.Merge("blank", session.Fragment{Kind: session.KindRequests, Requests: []string{"C"}})
	assert.ErrorIs(t, err, session.ErrNoTemplate)

	_, _, err = reg.Merge(name, session.Fragment{Kind: session.KindMatcher})
	assert.ErrorIs(t, err, session.ErrEmptyFragment)
}

func TestRegistryConcurrentMerges(t *testing.T) {
	reg := session.NewRegistry(nil)
	a := reg.Open(template.Template{Requests: []template.RequestGroup{{Raw: []string{"seed"}}}})
	b := reg.Open(template.Template{Requests: []template.RequestGroup{{Raw: []string{"seed"}}}})

	const perSession = 50
	var wg sync.WaitGroup
	for i := 0; i < perSession; i++ {
		for _, name := range []string{a, b} {
			wg.Add(1)
			go func(name string, i int) {
				defer wg.Done()
				_, _, err := reg.Merge(name, session.Fragment{Kind: session.KindRequests, Requests: []string{fmt.Sprint(i)}})
				assert.NoError(t, err)
				reg.List()
			}(name, i)
		}
	}
	wg.Wait()

	for _, name := range []string{a, b} {
		tpl, err := reg.Template(name)
		require.NoError(t, err)
		require.Len(t, tpl.Requests, 1)
		assert.Len(t, tpl.Requests[0].Raw, perSession+1)
	}
}

func TestRegistryRecordsRoundTrip(t *testing.T) {
	reg := session.NewRegistry(nil)
	_, err := reg.Create("empty")
	require.NoError(t, err)
	name := reg.Open(template.New("klea", "http://x/", template.RequestGroup{Raw: []string{"R"}}))

	restored, err := session.Restore(reg.Records(), nil)
	require.NoError(t, err)
	assert.Equal(t, reg.List(), restored.List())

	want, _ := reg.Template(name)
	got, err := restored.Template(name)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = session.Restore([]session.Record{{Name: "dup"}, {Name: "dup"}}, nil)
	assert.ErrorIs(t, err, session.ErrSessionExists)
}
