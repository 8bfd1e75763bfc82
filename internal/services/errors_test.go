package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"docflow/internal/services"
)

type kindError struct{ kind string }

func (e kindError) Error() string     { return "typed failure" }
func (e kindError) ErrorKind() string { return e.kind }

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConflict, "store", "update workflow", "version changed", base)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"store", "update workflow", "version changed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation marker", services.Wrap(services.ErrValidation, "api", "decode", "bad body", nil), services.KindValidation},
		{"not found", fmt.Errorf("load: %w", services.ErrNotFound), services.KindNotFound},
		{"conflict", services.Wrap(services.ErrConflict, "", "", "", nil), services.KindConflict},
		{"typed", fmt.Errorf("advance: %w", kindError{kind: "validation"}), services.KindValidation},
		{"plain", errors.New("disk on fire"), services.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
