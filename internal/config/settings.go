package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings is the on-disk form of the serialisable options. Unset fields
// leave the corresponding option untouched.
type Settings struct {
	ControlTimeout    string            `toml:"control_timeout" yaml:"control_timeout"`
	InitializeTimeout string            `toml:"initialize_timeout" yaml:"initialize_timeout"`
	ShutdownGrace     string            `toml:"shutdown_grace" yaml:"shutdown_grace"`
	MessageBufferSize int               `toml:"message_buffer_size" yaml:"message_buffer_size"`
	Command           string            `toml:"command" yaml:"command"`
	Args              []string          `toml:"args" yaml:"args"`
	Cwd               string            `toml:"cwd" yaml:"cwd"`
	Env               map[string]string `toml:"env" yaml:"env"`
}

// LoadFile reads settings from path. The format follows the extension:
// .toml, or .yaml / .yml. Duration fields are validated on load.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &s)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode %s: unknown key %q", path, undecoded[0].String())
		}

	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

	default:
		return nil, fmt.Errorf("settings file %s: unsupported extension %q", path, ext)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}

	return &s, nil
}

func (s *Settings) validate() error {
	for name, raw := range map[string]string{
		"control_timeout":    s.ControlTimeout,
		"initialize_timeout": s.InitializeTimeout,
		"shutdown_grace":     s.ShutdownGrace,
	} {
		if _, err := parseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if s.MessageBufferSize < 0 {
		return fmt.Errorf("message_buffer_size must not be negative")
	}

	return nil
}

// Apply overlays the set fields onto o. Env entries are merged, with the
// file winning on conflict.
func (s *Settings) Apply(o *Options) error {
	if err := s.validate(); err != nil {
		return err
	}

	if d, _ := parseDuration(s.ControlTimeout); d != nil {
		o.ControlTimeout = d
	}

	if d, _ := parseDuration(s.InitializeTimeout); d != nil {
		o.InitializeTimeout = d
	}

	if d, _ := parseDuration(s.ShutdownGrace); d != nil {
		o.ShutdownGrace = d
	}

	if s.MessageBufferSize > 0 {
		o.MessageBufferSize = s.MessageBufferSize
	}

	if s.Command != "" {
		o.Process.Command = s.Command
	}

	if s.Args != nil {
		o.Process.Args = append([]string(nil), s.Args...)
	}

	if s.Cwd != "" {
		o.Process.Cwd = s.Cwd
	}

	if len(s.Env) > 0 {
		if o.Process.Env == nil {
			o.Process.Env = make(map[string]string, len(s.Env))
		}

		maps.Copy(o.Process.Env, s.Env)
	}

	return nil
}

// parseDuration returns nil for an empty string.
func parseDuration(raw string) (*time.Duration, error) {
	if raw == "" {
		return nil, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, err
	}

	if d < 0 {
		return nil, fmt.Errorf("duration %q is negative", raw)
	}

	return &d, nil
}
