package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/stscreds/assume-role/internal/cache"
)

// Format selects how resolved credentials are rendered for the caller's shell
type Format string

const (
	FormatJSON       Format = "json"
	FormatBash       Format = "bash"
	FormatZsh        Format = "zsh"
	FormatFish       Format = "fish"
	FormatPowerShell Format = "powershell"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatBash, FormatZsh, FormatFish, FormatPowerShell:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q (use json, bash, zsh, fish or powershell)", s)
}

// Environ maps credentials to the environment variables AWS tooling expects
func Environ(creds cache.Credentials) map[string]string {
	env := map[string]string{
		"AWS_ACCESS_KEY_ID":     creds.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY": creds.SecretAccessKey,
		"AWS_SESSION_TOKEN":     creds.SessionToken,
	}
	if !creds.Expiration.IsZero() {
		env["AWS_EXPIRATION"] = creds.Expiration.Format(time.RFC3339)
	}
	return env
}

// Render produces the credential output for the requested format. Shell
// formats emit one assignment per line so the output can be eval'd or
// sourced directly.
func Render(format Format, creds cache.Credentials) (string, error) {
	env := Environ(creds)

	if format == FormatJSON {
		data, err := json.Marshal(env)
		if err != nil {
			return "", fmt.Errorf("encoding credentials: %w", err)
		}
		return string(data), nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines string
	for _, k := range keys {
		switch format {
		case FormatBash, FormatZsh:
			lines += fmt.Sprintf("export %s=%q\n", k, env[k])
		case FormatFish:
			lines += fmt.Sprintf("set -gx %s %q\n", k, env[k])
		case FormatPowerShell:
			lines += fmt.Sprintf("$env:%s=%q\n", k, env[k])
		}
	}
	return lines, nil
}

// credentialEnv appends the credential variables to the current environment
// for a child or replacement process.
func credentialEnv(creds cache.Credentials) []string {
	env := os.Environ()
	for k, v := range Environ(creds) {
		env = append(env, k+"="+v)
	}
	return env
}

// PrintSummary writes a short human-readable note to stderr so it doesn't
// interfere with eval'd output.
func PrintSummary(profile string, creds cache.Credentials) {
	fmt.Fprintf(os.Stderr, "# Credentials resolved for profile: %s\n", profile)
	if !creds.Expiration.IsZero() {
		fmt.Fprintf(os.Stderr, "# Valid until: %s\n", creds.Expiration.Format(time.RFC3339))
	}
	fmt.Fprintf(os.Stderr, "# Usage: eval $(assume-role --format bash %s)\n", profile)
}

// PrintUsage prints command-line usage information
func PrintUsage() {
	fmt.Printf(`Usage: assume-role [options] [profile] [-- command [args...]]

Resolve temporary AWS credentials for a profile, following source_profile
chains and prompting for MFA where required. Without a profile argument an
interactive selector is shown.

Options:
  -d, --duration <dur>    Session duration, e.g. 3600, 30m, 1h (900s-12h)
  -f, --format <fmt>      Output format: json, bash, zsh, fish, powershell
  -r, --refresh           Ignore cached sessions and fetch fresh credentials
  -e, --env               Seed the chain from AWS_* environment variables
  -t, --totp-code <code>  Use a pre-generated 6-digit MFA code
  -c, --config <path>     Extra config file merged over the defaults
  -v, --verbose           Print progress notes to stderr
  -h, --help              Show this help
  version                 Show version information

Examples:
  eval $(assume-role --format bash prod-admin)
  assume-role prod-admin -- aws s3 ls
  assume-role --refresh --totp-code 123456 prod-admin --format json
`)
}
