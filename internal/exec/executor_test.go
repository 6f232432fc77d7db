package exec

import (
	"errors"
	"fmt"
	"testing"
)

func TestExecutionErrorMessage(t *testing.T) {
	err := &ExecutionError{Code: "INSUFFICIENT_MARGIN", Message: "margin too low"}
	want := "execution failed [INSUFFICIENT_MARGIN]: margin too low"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestExecutionErrorUnwrapsWithAs(t *testing.T) {
	wrapped := fmt.Errorf("submit BTC-USD: %w", &ExecutionError{Code: "REJECTED", Message: "post-only would cross"})
	var execErr *ExecutionError
	if !errors.As(wrapped, &execErr) {
		t.Fatalf("expected errors.As to find ExecutionError")
	}
	if execErr.Code != "REJECTED" {
		t.Fatalf("unexpected code %q", execErr.Code)
	}
}
