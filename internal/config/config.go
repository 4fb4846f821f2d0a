package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"

	"github.com/stscreds/assume-role/pkg/duration"
)

// ErrNoConfig is returned when none of the candidate config sources could be read.
var ErrNoConfig = errors.New("no readable configuration source")

// Store is the merged, read-only view of all configuration sources
type Store struct {
	Profiles map[string]Profile
	Settings Settings
}

// tomlDocument mirrors the layout of ~/.aws/config.toml
type tomlDocument struct {
	Profile  map[string]Profile `toml:"profile"`
	Settings Settings           `toml:"settings"`
}

// DefaultPaths returns the config sources in merge order, lowest priority
// first. Later sources override same-named keys. AWS_CONFIG_FILE replaces
// the shared config location when set.
func DefaultPaths() []string {
	var paths []string

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".aws", "credentials"))
	}

	if custom := os.Getenv("AWS_CONFIG_FILE"); custom != "" {
		paths = append(paths, custom)
	} else if home != "" {
		paths = append(paths, filepath.Join(home, ".aws", "config"))
	}

	if home != "" {
		paths = append(paths, filepath.Join(home, ".aws", "config.toml"))
	}

	return paths
}

// Load reads and merges the given config sources in order. Files with a
// .toml extension are parsed as TOML, everything else as INI. Missing files
// are tolerated as long as at least one source is readable; unknown keys are
// ignored so newer config files keep working with older builds.
func Load(paths ...string) (*Store, error) {
	store := &Store{Profiles: make(map[string]Profile)}

	loaded := 0
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var err error
		if strings.HasSuffix(path, ".toml") {
			err = store.mergeTOML(path)
		} else {
			err = store.mergeINI(path)
		}
		if err != nil {
			return nil, err
		}
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("%w: tried %s", ErrNoConfig, strings.Join(paths, ", "))
	}

	for name, p := range store.Profiles {
		if p.DurationSeconds == 0 {
			continue
		}
		if err := duration.Validate(time.Duration(p.DurationSeconds) * time.Second); err != nil {
			return nil, fmt.Errorf("profile %q: invalid duration_seconds: %w", name, err)
		}
	}

	return store, nil
}

// EnsureReadable verifies an explicitly requested config file can be opened.
// Load tolerates missing default locations, but a path the user named on the
// command line must exist.
func EnsureReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config file %s is not readable: %w", path, err)
	}
	return f.Close()
}

func (s *Store) mergeINI(path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("malformed config %s: %w", path, err)
	}

	for _, section := range file.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		if name == "settings" {
			if err := section.MapTo(&s.Settings); err != nil {
				return fmt.Errorf("malformed [settings] in %s: %w", path, err)
			}
			continue
		}

		profileName := strings.TrimPrefix(name, "profile ")
		profile := s.Profiles[profileName]
		if err := section.MapTo(&profile); err != nil {
			return fmt.Errorf("malformed profile %q in %s: %w", profileName, path, err)
		}
		profile.Name = profileName
		s.Profiles[profileName] = profile
	}

	return nil
}

func (s *Store) mergeTOML(path string) error {
	var doc tomlDocument
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("malformed config %s: %w", path, err)
	}

	for name, profile := range doc.Profile {
		merged := overlay(s.Profiles[name], profile)
		merged.Name = name
		s.Profiles[name] = merged
	}
	s.Settings = overlaySettings(s.Settings, doc.Settings)

	return nil
}

// overlay applies the non-zero fields of top over base
func overlay(base, top Profile) Profile {
	if top.RoleArn != "" {
		base.RoleArn = top.RoleArn
	}
	if top.SourceProfile != "" {
		base.SourceProfile = top.SourceProfile
	}
	if top.MFASerial != "" {
		base.MFASerial = top.MFASerial
	}
	if top.ExternalID != "" {
		base.ExternalID = top.ExternalID
	}
	if top.DurationSeconds != 0 {
		base.DurationSeconds = top.DurationSeconds
	}
	if top.Region != "" {
		base.Region = top.Region
	}
	if top.TOTPSecret != "" {
		base.TOTPSecret = top.TOTPSecret
	}
	if top.AccessKeyID != "" {
		base.AccessKeyID = top.AccessKeyID
	}
	if top.SecretAccessKey != "" {
		base.SecretAccessKey = top.SecretAccessKey
	}
	if top.SessionToken != "" {
		base.SessionToken = top.SessionToken
	}
	return base
}

func overlaySettings(base, top Settings) Settings {
	if top.MaxHops != 0 {
		base.MaxHops = top.MaxHops
	}
	if top.SafetyMarginSecs != 0 {
		base.SafetyMarginSecs = top.SafetyMarginSecs
	}
	if top.CachePath != "" {
		base.CachePath = top.CachePath
	}
	if top.RetryMaxAttempts != 0 {
		base.RetryMaxAttempts = top.RetryMaxAttempts
	}
	if top.RetryInitialDelay != "" {
		base.RetryInitialDelay = top.RetryInitialDelay
	}
	return base
}

// Profile looks up a profile by name
func (s *Store) Profile(name string) (Profile, bool) {
	p, ok := s.Profiles[name]
	return p, ok
}

// AssumableProfiles returns the sorted names of profiles that have a role to
// assume, for the interactive selector.
func (s *Store) AssumableProfiles() []string {
	var names []string
	for name, p := range s.Profiles {
		if p.RoleArn != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
