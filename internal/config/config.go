package config

// Filter profile loading for uart-filter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/open-nexus/vmdbg/internal/errors"
)

// FilterProfile is a named preset of uart-filter settings.
type FilterProfile struct {
	StripEscape      bool     `yaml:"strip_escape,omitempty"`
	ExtractDebugPutc bool     `yaml:"extract_debug_putc,omitempty"`
	Grep             []string `yaml:"grep,omitempty"`
	Exclude          []string `yaml:"exclude,omitempty"`
}

// File is the on-disk profile collection.
type File struct {
	Profiles map[string]FilterProfile `yaml:"profiles"`
}

// Load reads and validates a profile file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapConfigError(fmt.Errorf("parse yaml: %w", err), path)
	}

	if err := f.Validate(); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return &f, nil
}

// Validate checks the profile collection for structural problems.
func (f *File) Validate() error {
	if len(f.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}
	for name, p := range f.Profiles {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("profile with empty name")
		}
		for _, needle := range append(append([]string{}, p.Grep...), p.Exclude...) {
			if needle == "" {
				return fmt.Errorf("profile %q: empty filter substring", name)
			}
		}
	}
	return nil
}

// Profile resolves a profile by name.
func (f *File) Profile(name string) (FilterProfile, error) {
	p, ok := f.Profiles[name]
	if !ok {
		return FilterProfile{}, fmt.Errorf("unknown profile %q (available: %s)",
			name, strings.Join(f.ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames returns the defined profile names, sorted.
func (f *File) ProfileNames() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
