package common

import (
	"strings"
	"testing"
)

func TestGetFullVersion(t *testing.T) {
	full := GetFullVersion()

	if !strings.HasPrefix(full, GetVersion()) {
		t.Errorf("full version %q should start with version %q", full, GetVersion())
	}
	if !strings.Contains(full, Build) || !strings.Contains(full, GitCommit) {
		t.Errorf("full version %q should carry build and commit info", full)
	}
}
