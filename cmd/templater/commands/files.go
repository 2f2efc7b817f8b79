/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: files.go
Description: YAML files used by the command line host. A selection file describes the
captured traffic and highlighted range; a workspace file keeps the open sessions and
their templates between runs.
*/

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kleascm/akaylee-templater/pkg/actions"
	"github.com/kleascm/akaylee-templater/pkg/httpmsg"
	"github.com/kleascm/akaylee-templater/pkg/session"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// TargetFile is one captured pair. Inline text is encoded one byte per
// character; *_file entries are read as raw bytes relative to the selection file.
type TargetFile struct {
	Request      string `yaml:"request,omitempty"`
	RequestFile  string `yaml:"request_file,omitempty"`
	Response     string `yaml:"response,omitempty"`
	ResponseFile string `yaml:"response_file,omitempty"`
	URL          string `yaml:"url,omitempty"`
	Secure       bool   `yaml:"secure,omitempty"`
}

// SelectionFile is the on-disk form of a selection
type SelectionFile struct {
	Targets []TargetFile   `yaml:"targets"`
	Range   template.Range `yaml:"range,omitempty"`
	View    string         `yaml:"view,omitempty"`
	Tool    string         `yaml:"tool,omitempty"`
}

// Workspace is the on-disk form of the session registry
type Workspace struct {
	Sessions []session.Record `yaml:"sessions"`
}

// ReadSelection loads a selection file
func ReadSelection(path string) (actions.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return actions.Selection{}, fmt.Errorf("failed to read selection: %w", err)
	}

	var f SelectionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return actions.Selection{}, fmt.Errorf("failed to parse selection: %w", err)
	}

	tool, err := actions.ParseToolType(f.Tool)
	if err != nil {
		return actions.Selection{}, err
	}

	sel := actions.Selection{
		Range: f.Range,
		View:  actions.ViewKind(f.View),
		Tool:  tool,
	}

	base := filepath.Dir(path)
	for i, t := range f.Targets {
		request, err := content(base, t.Request, t.RequestFile)
		if err != nil {
			return actions.Selection{}, fmt.Errorf("target %d request: %w", i, err)
		}
		response, err := content(base, t.Response, t.ResponseFile)
		if err != nil {
			return actions.Selection{}, fmt.Errorf("target %d response: %w", i, err)
		}
		sel.Targets = append(sel.Targets, actions.Target{
			Request:  request,
			Response: response,
			URL:      t.URL,
			Secure:   t.Secure,
		})
	}
	return sel, nil
}

func content(base, inline, file string) ([]byte, error) {
	if file == "" {
		if inline == "" {
			return nil, nil
		}
		return httpmsg.Encode(inline), nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(base, file)
	}
	return os.ReadFile(file)
}

// LoadWorkspace restores the registry saved at path. A missing file yields an
// empty registry.
func LoadWorkspace(path string, logger *logrus.Logger) (*session.Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return session.NewRegistry(logger), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}

	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	return session.Restore(ws.Sessions, logger)
}

// SaveWorkspace writes the registry to path
func SaveWorkspace(path string, reg *session.Registry) error {
	data, err := yaml.Marshal(Workspace{Sessions: reg.Records()})
	if err != nil {
		return fmt.Errorf("failed to encode workspace: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	return nil
}
