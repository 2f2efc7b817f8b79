/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: settings.go
Description: User settings for the Akaylee Templater. Settings come from a YAML config
file, TEMPLATER_ environment variables (optionally loaded from a .env file) and command
line flags bound through viper. Blank values get computed defaults: the OS user as
author, ~/nuclei-templates as template directory and nuclei found on PATH.
*/

package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/kleascm/akaylee-templater/pkg/template"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables, e.g. TEMPLATER_AUTHOR
const EnvPrefix = "TEMPLATER"

// Setting keys
const (
	KeyNucleiPath    = "nuclei_path"
	KeyTemplatePath  = "template_path"
	KeyAuthor        = "author"
	KeyDefaultAttack = "default_attack"
)

// ErrUnknownKey is returned when setting a key that does not exist
var ErrUnknownKey = errors.New("unknown setting")

// Settings holds the user preferences
type Settings struct {
	NucleiPath    string              `json:"nuclei_path" yaml:"nuclei_path" mapstructure:"nuclei_path"`
	TemplatePath  string              `json:"template_path" yaml:"template_path" mapstructure:"template_path"`
	Author        string              `json:"author" yaml:"author" mapstructure:"author"`
	DefaultAttack template.AttackType `json:"default_attack" yaml:"default_attack" mapstructure:"default_attack"`
}

// Keys returns every setting key, sorted
func Keys() []string {
	keys := []string{KeyNucleiPath, KeyTemplatePath, KeyAuthor, KeyDefaultAttack}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case KeyNucleiPath:
		return s.NucleiPath, nil
	case KeyTemplatePath:
		return s.TemplatePath, nil
	case KeyAuthor:
		return s.Author, nil
	case KeyDefaultAttack:
		return string(s.DefaultAttack), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Set assigns value to key. Attack types are validated.
func (s *Settings) Set(key, value string) error {
	switch key {
	case KeyNucleiPath:
		s.NucleiPath = value
	case KeyTemplatePath:
		s.TemplatePath = value
	case KeyAuthor:
		s.Author = value
	case KeyDefaultAttack:
		attack, err := template.ParseAttackType(value)
		if err != nil {
			return err
		}
		s.DefaultAttack = attack
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Store reads and writes settings
type Store struct {
	v    *viper.Viper
	path string
}

// DefaultPath returns the config file used when none is given
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "akaylee-templater", "config.yaml")
}

// NewStore creates a store for the config file at path (DefaultPath when empty)
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, key := range Keys() {
		v.SetDefault(key, "")
	}

	return &Store{v: v, path: path}
}

// Viper exposes the store's viper instance for flag binding
func (s *Store) Viper() *viper.Viper {
	return s.v
}

// Path returns the config file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the config file, environment and bound flags. A missing config
// file is not an error.
func (s *Store) Load() (*Settings, error) {
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	st := &Settings{
		NucleiPath:   s.v.GetString(KeyNucleiPath),
		TemplatePath: s.v.GetString(KeyTemplatePath),
		Author:       s.v.GetString(KeyAuthor),
	}
	if raw := s.v.GetString(KeyDefaultAttack); raw != "" {
		attack, err := template.ParseAttackType(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyDefaultAttack, err)
		}
		st.DefaultAttack = attack
	}

	applyDefaults(st)
	return st, nil
}

// Save writes st to the config file, creating its directory
func (s *Store) Save(st *Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := viper.New()
	for _, key := range Keys() {
		value, _ := st.Get(key)
		out.Set(key, value)
	}
	if err := out.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnvFiles loads .env style files into the environment. Missing files are
// skipped and variables already set are kept.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func applyDefaults(st *Settings) {
	if st.Author == "" {
		st.Author = defaultAuthor()
	}
	if st.TemplatePath == "" {
		st.TemplatePath = defaultTemplatePath()
	}
	if st.NucleiPath == "" {
		if p, err := exec.LookPath("nuclei"); err == nil {
			st.NucleiPath = p
		}
	}
	if st.DefaultAttack == "" {
		st.DefaultAttack = template.DefaultAttackType
	}
}

func defaultAuthor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// defaultTemplatePath is ~/nuclei-templates when that directory exists
func defaultTemplatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, "nuclei-templates")
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return p
	}
	return ""
}
