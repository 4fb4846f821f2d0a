// Package mfa produces the one-time codes STS requires when a hop carries an
// mfa_serial. Codes are never cached; STS rejects reuse within a window anyway.
package mfa

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/manifoldco/promptui"
	"github.com/pquerna/otp/totp"
)

var (
	// ErrInvalidSecret indicates a TOTP secret that is not valid base32.
	ErrInvalidSecret = errors.New("invalid TOTP secret")
	// ErrUserCancelled indicates the user aborted the interactive prompt.
	ErrUserCancelled = errors.New("MFA entry cancelled")
)

// Provider supplies the 6-digit code valid at call time for an MFA device
type Provider interface {
	Provide(serial string) (string, error)
}

// TOTPProvider computes codes from a stored shared secret using the standard
// 30-second-window, 6-digit HMAC-SHA1 algorithm. Now is injectable so a fixed
// clock yields a fixed code.
type TOTPProvider struct {
	Secret string
	Now    func() time.Time
}

func (p *TOTPProvider) Provide(string) (string, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	secret := strings.ToUpper(strings.ReplaceAll(p.Secret, " ", ""))
	code, err := totp.GenerateCode(secret, now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return code, nil
}

// StaticProvider returns a code the caller already obtained, e.g. from the
// --totp-code flag.
type StaticProvider string

func (p StaticProvider) Provide(string) (string, error) {
	if err := validateCode(string(p)); err != nil {
		return "", err
	}
	return string(p), nil
}

// PromptProvider blocks on an interactive prompt for a code from a physical
// or app authenticator.
type PromptProvider struct{}

func (p *PromptProvider) Provide(serial string) (string, error) {
	prompt := promptui.Prompt{
		Label:    fmt.Sprintf("MFA code for %s", serial),
		Validate: validateCode,
	}

	code, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", ErrUserCancelled
		}
		return "", fmt.Errorf("reading MFA code: %w", err)
	}
	return code, nil
}

func validateCode(code string) error {
	if len(code) != 6 {
		return fmt.Errorf("MFA code must be 6 digits")
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("MFA code must contain only digits")
		}
	}
	return nil
}

// ForProfile picks the provider for a hop: an explicit code wins, then a
// configured TOTP secret, then the interactive prompt.
func ForProfile(totpSecret, staticCode string) Provider {
	if staticCode != "" {
		return StaticProvider(staticCode)
	}
	if totpSecret != "" {
		return &TOTPProvider{Secret: totpSecret}
	}
	return &PromptProvider{}
}
