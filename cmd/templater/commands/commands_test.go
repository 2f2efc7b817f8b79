/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: commands_test.go
Description: Tests for the command line host: selection and workspace files and the
resolve, apply and session commands end to end.
*/

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/kleascm/akaylee-templater/pkg/actions"
	"github.com/kleascm/akaylee-templater/pkg/logging"
	"github.com/kleascm/akaylee-templater/pkg/session"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// setup points the global configuration at a temporary directory
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("config", filepath.Join(dir, "config.yaml"))
	viper.Set("env_file", "")
	viper.Set("workspace", filepath.Join(dir, "workspace.yaml"))
	viper.Set("log_level", "error")
	viper.Set("log_format", "text")
	t.Setenv("TEMPLATER_AUTHOR", "tester")
	return dir
}

func selectionCommand(run func(*cobra.Command, []string) error, selection string, action int) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{RunE: run}
	cmd.Flags().String("selection", selection, "")
	cmd.Flags().Int("action", action, "")
	cmd.Flags().String("author", "", "")
	cmd.Flags().String("default-attack", "", "")

	var out bytes.Buffer
	cmd.SetOut(&out)
	return cmd, &out
}

func TestReadSelectionInline(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sel.yaml", heredoc.Doc(`
		targets:
		  - request: "GET /?q=§x§ HTTP/1.1\r\nHost: example.com\r\n\r\n"
		    response: "HTTP/1.1 200 OK\r\n\r\nbody"
		    secure: true
		range: {start: 2, end: 4}
		view: response
		tool: Intruder
	`))

	sel, err := ReadSelection(path)
	require.NoError(t, err)
	require.Len(t, sel.Targets, 1)
	assert.Equal(t, actions.ToolIntruder, sel.Tool)
	assert.Equal(t, actions.ViewResponse, sel.View)
	assert.Equal(t, template.Range{Start: 2, End: 4}, sel.Range)
	assert.True(t, sel.Targets[0].Secure)
	assert.Contains(t, string(sel.Targets[0].Request), "q=\xa7x\xa7 ")
	assert.Equal(t, []byte("HTTP/1.1 200 OK\r\n\r\nbody"), sel.Targets[0].Response)
}

func TestReadSelectionFromFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "req.http", "GET /a HTTP/1.1\r\nHost: a\r\n\r\n")
	path := writeFile(t, dir, "sel.yaml", heredoc.Doc(`
		targets:
		  - request_file: req.http
		    url: https://a/a
		  - request: "GET /b HTTP/1.1\r\nHost: b\r\n\r\n"
	`))

	sel, err := ReadSelection(path)
	require.NoError(t, err)
	require.Len(t, sel.Targets, 2)
	assert.Equal(t, []byte("GET /a HTTP/1.1\r\nHost: a\r\n\r\n"), sel.Targets[0].Request)
	assert.Equal(t, "https://a/a", sel.Targets[0].URL)
	assert.Empty(t, sel.Targets[1].Response)

	_, err = ReadSelection(writeFile(t, dir, "bad.yaml", "targets:\n  - request_file: missing.http\n"))
	assert.Error(t, err)
	_, err = ReadSelection(writeFile(t, dir, "tool.yaml", "tool: comparer\n"))
	assert.Error(t, err)
}

func TestWorkspaceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ws", "workspace.yaml")

	reg, err := LoadWorkspace(path, nil)
	require.NoError(t, err)
	assert.True(t, reg.Empty())

	tpl := template.New("klea", "https://example.com/", template.RequestGroup{
		Raw:               []string{"GET /?q=§x§ HTTP/1.1\r\n\r\n"},
		Transform:         &template.PayloadTransform{AttackType: template.AttackSniper, MarkedRequest: "GET /?q=§x§ HTTP/1.1\r\n\r\n"},
		Matchers:          []template.Matcher{{Text: "ok", StatusCode: 200, Part: "body", SourceRange: template.Range{Start: 1, End: 3}}},
		MatchersCondition: template.ConditionAnd,
	})
	name := reg.Open(tpl)
	_, err = reg.Create("scratch")
	require.NoError(t, err)
	require.NoError(t, SaveWorkspace(path, reg))

	loaded, err := LoadWorkspace(path, nil)
	require.NoError(t, err)
	assert.Equal(t, reg.List(), loaded.List())

	got, err := loaded.Template(name)
	require.NoError(t, err)
	assert.Equal(t, tpl, got)
}

func TestApplyOutOfRange(t *testing.T) {
	_, _, err := Apply(nil, 1, &logging.Logger{})
	assert.Error(t, err)
}

func TestResolveAndApplyCommands(t *testing.T) {
	dir := setup(t)
	sel := writeFile(t, dir, "sel.yaml", heredoc.Doc(`
		targets:
		  - request: "GET /x?id=5 HTTP/1.1\r\nHost: example.com\r\n\r\n"
		range: {start: 10, end: 11}
		view: request
	`))

	cmd, out := selectionCommand(RunResolve, sel, 0)
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "1. Generate template")
	assert.Contains(t, out.String(), "2. Generate Intruder Template")
	assert.NotContains(t, out.String(), "Add request to")

	cmd, out = selectionCommand(RunApply, sel, 2)
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "Session:  Template 1")

	reg, err := LoadWorkspace(viper.GetString("workspace"), nil)
	require.NoError(t, err)
	tpl, err := reg.Template("Template 1")
	require.NoError(t, err)
	assert.Equal(t, "tester", tpl.Info.Author)
	require.NotNil(t, tpl.Requests[0].Transform)
	assert.Contains(t, tpl.Requests[0].Raw[0], "id=§5§")

	// the session is now a merge target
	cmd, out = selectionCommand(RunResolve, sel, 0)
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "3. Add request to Template 1")

	cmd, _ = selectionCommand(RunApply, sel, 3)
	require.NoError(t, cmd.RunE(cmd, nil))
	reg, err = LoadWorkspace(viper.GetString("workspace"), nil)
	require.NoError(t, err)
	tpl, err = reg.Template("Template 1")
	require.NoError(t, err)
	assert.Len(t, tpl.Requests[0].Raw, 2)

	cmd, _ = selectionCommand(RunApply, sel, 9)
	assert.Error(t, cmd.RunE(cmd, nil))
}

func TestSessionCommands(t *testing.T) {
	setup(t)

	run := func(fn func(*cobra.Command, []string) error, args ...string) string {
		cmd := &cobra.Command{}
		var out bytes.Buffer
		cmd.SetOut(&out)
		require.NoError(t, fn(cmd, args))
		return out.String()
	}

	assert.Contains(t, run(RunSessions), "No open sessions")
	assert.Contains(t, run(RunNew, "draft"), `Session "draft" created (1 open)`)
	assert.Contains(t, run(RunSessions), "1. draft [template]")

	reg, err := LoadWorkspace(viper.GetString("workspace"), nil)
	require.NoError(t, err)
	name := reg.Open(template.New("klea", "", template.RequestGroup{
		Raw:      []string{"GET / HTTP/1.1"},
		Matchers: []template.Matcher{{Text: "ok", StatusCode: 200, Part: "body"}},
	}))
	require.NoError(t, SaveWorkspace(viper.GetString("workspace"), reg))

	shown := run(RunShow, name)
	assert.Contains(t, shown, "Author:   klea")
	assert.Contains(t, shown, `Match word in body: "ok"`)
	assert.Contains(t, shown, "Match status: [200]")

	assert.Contains(t, run(RunClose, "draft"), `Session "draft" closed (1 open)`)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	assert.ErrorIs(t, RunClose(cmd, []string{"draft"}), session.ErrSessionNotFound)
}

func TestExportCommand(t *testing.T) {
	dir := setup(t)

	reg, err := LoadWorkspace(viper.GetString("workspace"), nil)
	require.NoError(t, err)
	name := reg.Open(template.New("klea", "", template.RequestGroup{Raw: []string{"GET / HTTP/1.1"}}))
	require.NoError(t, SaveWorkspace(viper.GetString("workspace"), reg))

	cmd, out := selectionCommand(RunExport, "", 0)
	cmd.Flags().String("dir", filepath.Join(dir, "out"), "")
	require.NoError(t, cmd.RunE(cmd, []string{name}))
	assert.Contains(t, out.String(), "exported to")

	entries, err := os.ReadDir(filepath.Join(dir, "out", "Template_1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	cmd, _ = selectionCommand(RunExport, "", 0)
	cmd.Flags().String("dir", filepath.Join(dir, "out"), "")
	assert.ErrorIs(t, cmd.RunE(cmd, []string{"missing"}), session.ErrSessionNotFound)
}

func TestNewSessionReceivesMergedRequest(t *testing.T) {
	dir := setup(t)
	sel := writeFile(t, dir, "sel.yaml", heredoc.Doc(`
		targets:
		  - request: "GET /x?id=5 HTTP/1.1\r\nHost: example.com\r\n\r\n"
	`))

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, RunNew(cmd, []string{"mine"}))

	reg, err := LoadWorkspace(viper.GetString("workspace"), nil)
	require.NoError(t, err)
	tpl, err := reg.Template("mine")
	require.NoError(t, err)
	assert.Empty(t, tpl.Requests)
	assert.Equal(t, "tester", tpl.Info.Author)

	cmd, out := selectionCommand(RunResolve, sel, 0)
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "2. Add request to mine")

	cmd, _ = selectionCommand(RunApply, sel, 2)
	require.NoError(t, cmd.RunE(cmd, nil))

	reg, err = LoadWorkspace(viper.GetString("workspace"), nil)
	require.NoError(t, err)
	tpl, err = reg.Template("mine")
	require.NoError(t, err)
	require.Len(t, tpl.Requests, 1)
	assert.Equal(t, []string{"GET /x?id=5 HTTP/1.1\r\nHost: example.com\r\n\r\n"}, tpl.Requests[0].Raw)
}

func TestSettingsCommands(t *testing.T) {
	setup(t)

	cmd, out := selectionCommand(RunSettingsSet, "", 0)
	require.NoError(t, cmd.RunE(cmd, []string{"default_attack", "sniper"}))
	assert.Contains(t, out.String(), "default_attack = sniper")

	cmd, out = selectionCommand(RunSettingsShow, "", 0)
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "sniper")
	assert.Contains(t, out.String(), "tester")

	cmd, _ = selectionCommand(RunSettingsSet, "", 0)
	assert.Error(t, cmd.RunE(cmd, []string{"marker", "$"}))
}

func TestListAttacks(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	ListAttacks(cmd, nil)

	for _, a := range template.AttackTypes() {
		assert.Contains(t, out.String(), string(a))
	}
	assert.Contains(t, out.String(), "batteringram (default)")
}
