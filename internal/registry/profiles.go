package registry

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ariastack/aria-engine/internal/models"
)

// Registry holds static per-service operational context consulted during
// triage. It is read-only after construction and safe for concurrent use.
type Registry struct {
	profiles map[string]models.ServiceProfile
	logger   *slog.Logger
}

type registryFile struct {
	Profiles map[string]models.ServiceProfile `yaml:"profiles"`
}

// Load reads a profile registry from the provided path. If path is empty or
// the file does not exist, returns a nil registry; lookups on nil succeed
// with a zero-value profile.
func Load(path string, logger *slog.Logger) (*Registry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	profiles := make(map[string]models.ServiceProfile, len(file.Profiles))
	for name, profile := range file.Profiles {
		profiles[strings.ToLower(name)] = profile
	}
	return &Registry{profiles: profiles, logger: logger}, nil
}

// Lookup returns the profile for service and whether one was registered.
func (r *Registry) Lookup(service string) (models.ServiceProfile, bool) {
	if r == nil {
		return models.ServiceProfile{}, false
	}
	profile, ok := r.profiles[strings.ToLower(service)]
	return profile, ok
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.profiles)
}
