package config

import "time"

// Profile represents one named profile from the layered AWS configuration
type Profile struct {
	Name            string `ini:"-" toml:"-"`
	RoleArn         string `ini:"role_arn" toml:"role_arn"`
	SourceProfile   string `ini:"source_profile" toml:"source_profile"`
	MFASerial       string `ini:"mfa_serial" toml:"mfa_serial"`
	ExternalID      string `ini:"external_id" toml:"external_id"`
	DurationSeconds int    `ini:"duration_seconds" toml:"duration_seconds"`
	Region          string `ini:"region" toml:"region"`
	TOTPSecret      string `ini:"totp_secret" toml:"totp_secret"`
	AccessKeyID     string `ini:"aws_access_key_id" toml:"aws_access_key_id"`
	SecretAccessKey string `ini:"aws_secret_access_key" toml:"aws_secret_access_key"`
	SessionToken    string `ini:"aws_session_token" toml:"aws_session_token"`
}

// IsBase reports whether the profile seeds a chain directly from static or
// environment credentials, without an AssumeRole call.
func (p Profile) IsBase() bool {
	return p.RoleArn == ""
}

// HasStaticCredentials reports whether the profile carries a long-lived key pair.
func (p Profile) HasStaticCredentials() bool {
	return p.AccessKeyID != "" && p.SecretAccessKey != ""
}

// Duration returns the session duration for this profile's hop, falling back
// to the STS default of one hour.
func (p Profile) Duration() int {
	if p.DurationSeconds == 0 {
		return 3600
	}
	return p.DurationSeconds
}

// Settings holds tool-wide knobs from the [settings] section
type Settings struct {
	MaxHops           int    `ini:"max_hops" toml:"max_hops"`
	SafetyMarginSecs  int    `ini:"safety_margin" toml:"safety_margin"`
	CachePath         string `ini:"cache_path" toml:"cache_path"`
	RetryMaxAttempts  int    `ini:"retry_max_attempts" toml:"retry_max_attempts"`
	RetryInitialDelay string `ini:"retry_initial_delay" toml:"retry_initial_delay"`
}

// SafetyMargin returns the buffer subtracted from a credential's expiration
// before it is treated as invalid.
func (s Settings) SafetyMargin() time.Duration {
	if s.SafetyMarginSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.SafetyMarginSecs) * time.Second
}

// HopLimit returns the maximum chain length
func (s Settings) HopLimit() int {
	if s.MaxHops <= 0 {
		return 10
	}
	return s.MaxHops
}
