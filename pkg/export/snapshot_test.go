/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: snapshot_test.go
Description: Tests for session snapshot export.
*/

package export_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kleascm/akaylee-templater/pkg/export"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	tpl := template.New("klea", "https://example.com/", template.RequestGroup{Raw: []string{"GET / HTTP/1.1"}})

	path, err := export.WriteSnapshot(dir, "Template 1", tpl)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Template_1"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_"+tpl.ID+".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap export.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "Template 1", snap.Session)
	assert.Equal(t, tpl, snap.Template)
	assert.False(t, snap.Taken.IsZero())
}

func TestWriteSnapshotUnsafeNames(t *testing.T) {
	dir := t.TempDir()

	path, err := export.WriteSnapshot(dir, "../../etc", template.Template{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "______etc"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_unnamed.json"))
}
