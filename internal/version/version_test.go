package version

import "testing"

func TestString(t *testing.T) {
	old := Version
	Version = "1.2.0"
	defer func() { Version = old }()

	if got, want := String(), "gla14 1.2.0 (unknown, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
