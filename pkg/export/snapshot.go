/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: snapshot.go
Description: Snapshot writer for session templates. Writes the in-progress template
of a session as indented JSON into a per-session subdirectory with a timestamped,
template-specific file name.
*/

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleascm/akaylee-templater/pkg/template"
)

// Snapshot is the exported form of a session
type Snapshot struct {
	Session  string            `json:"session"`
	Taken    time.Time         `json:"taken"`
	Template template.Template `json:"template"`
}

// WriteSnapshot writes t under dir/<session>/ and returns the file path.
// File names look like 2024-06-11_01-30-00_template-1a2b3c4d.json.
func WriteSnapshot(dir, session string, t template.Template) (string, error) {
	snapshotDir := filepath.Join(dir, slug(session))
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s.json", now.Format("2006-01-02_15-04-05"), slug(t.ID))
	filePath := filepath.Join(snapshotDir, filename)

	data, err := json.MarshalIndent(Snapshot{Session: session, Taken: now, Template: t}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return filePath, nil
}

// slug makes a name safe for use as a path element
func slug(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(name))
	if s == "" {
		return "unnamed"
	}
	return s
}
