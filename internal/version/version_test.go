package version

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion() returned empty string")
	}
}

func TestGetFullVersion(t *testing.T) {
	full := GetFullVersion()
	if !strings.Contains(full, "assume-role version") {
		t.Errorf("GetFullVersion() = %q, missing tool name", full)
	}
	if !strings.Contains(full, Version) {
		t.Errorf("GetFullVersion() = %q, missing version %q", full, Version)
	}
}
