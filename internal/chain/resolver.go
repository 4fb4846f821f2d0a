// Package chain turns a requested profile name into the ordered list of
// assume-role hops needed to reach it, by walking source_profile links back
// to a base profile.
package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stscreds/assume-role/internal/config"
)

// ErrChainTooLong is returned when a chain exceeds the configured hop limit.
var ErrChainTooLong = errors.New("profile chain exceeds maximum hop count")

// CycleError reports a profile graph cycle reachable from the target
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("profile cycle detected: %s", strings.Join(e.Path, " -> "))
}

// UnknownProfileError reports a source_profile reference that does not exist
type UnknownProfileError struct {
	Name string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("profile %q not found in configuration", e.Name)
}

// Resolve walks source_profile links from target until it reaches a base
// profile, returning the hops in base-to-target order. The first element
// never has a role_arn; every later element is one AssumeRole call.
func Resolve(target string, profiles map[string]config.Profile, maxHops int) ([]config.Profile, error) {
	visited := make(map[string]bool)
	var path []string
	var hops []config.Profile

	name := target
	for {
		if visited[name] {
			return nil, &CycleError{Path: append(path, name)}
		}
		visited[name] = true
		path = append(path, name)

		profile, ok := profiles[name]
		if !ok {
			return nil, &UnknownProfileError{Name: name}
		}

		hops = append([]config.Profile{profile}, hops...)
		if len(hops) > maxHops {
			return nil, fmt.Errorf("%w (%d) resolving %q", ErrChainTooLong, maxHops, target)
		}

		if profile.IsBase() {
			return hops, nil
		}
		if profile.SourceProfile == "" {
			// A profile carrying its own long-lived keys may authorize its
			// own role assumption; synthesize the base hop from those keys.
			if profile.HasStaticCredentials() {
				base := profile
				base.RoleArn = ""
				base.MFASerial = ""
				base.ExternalID = ""
				hops = append([]config.Profile{base}, hops...)
				if len(hops) > maxHops {
					return nil, fmt.Errorf("%w (%d) resolving %q", ErrChainTooLong, maxHops, target)
				}
				return hops, nil
			}
			return nil, fmt.Errorf("profile %q sets role_arn but has neither source_profile nor static credentials", name)
		}
		name = profile.SourceProfile
	}
}
