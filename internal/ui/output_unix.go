//go:build !windows

package ui

import (
	"fmt"
	"os/exec"
	"syscall"

	"github.com/stscreds/assume-role/internal/cache"
)

// Exec replaces the current process with the given command, credentials
// injected into its environment.
func Exec(creds cache.Credentials, args []string) error {
	path, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("command %q not found: %w", args[0], err)
	}

	return syscall.Exec(path, args, credentialEnv(creds))
}
