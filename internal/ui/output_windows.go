//go:build windows

package ui

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/stscreds/assume-role/internal/cache"
)

// Exec runs the given command with credentials injected into its environment.
// Windows has no execve, so the command runs as a child and its exit code is
// propagated.
func Exec(creds cache.Credentials, args []string) error {
	path, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("command %q not found: %w", args[0], err)
	}

	cmd := exec.Command(path, args[1:]...)
	cmd.Env = credentialEnv(creds)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("running %q: %w", args[0], err)
	}
	os.Exit(0)
	return nil
}
