package migrate

import (
	"errors"
	"testing"
)

func TestRunRequiresDSN(t *testing.T) {
	if err := Run("", "up"); err == nil {
		t.Fatal("Run with empty DSN should fail")
	}
}

func TestRunRejectsUnknownDirection(t *testing.T) {
	for _, dir := range []string{"", "sideways", "UP", "Down"} {
		if err := Run("postgres://localhost/equiplink", dir); err == nil {
			t.Errorf("Run(direction=%q) should fail", dir)
		}
	}
}

func TestErrNoChangeIdentity(t *testing.T) {
	// cmd/migrate treats ErrNoChange as success; it must stay matchable.
	if !errors.Is(ErrNoChange, ErrNoChange) {
		t.Error("ErrNoChange must satisfy errors.Is against itself")
	}
}
