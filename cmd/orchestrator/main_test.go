package main

import (
	"errors"
	"testing"

	"github.com/utxoracle/engine/internal/config"
	"github.com/utxoracle/engine/internal/orchestrator"
)

func TestClassifyFailureMapsLockContention(t *testing.T) {
	if got := classifyFailure(orchestrator.ErrLockContended); got != exitLockContended {
		t.Fatalf("expected exit code %d, got %d", exitLockContended, got)
	}
}

func TestClassifyFailureMapsInvalidConfig(t *testing.T) {
	wrapped := errors.Join(config.ErrInvalidConfig, errors.New("STORE_DSN is required"))
	if got := classifyFailure(wrapped); got != exitConfigError {
		t.Fatalf("expected exit code %d, got %d", exitConfigError, got)
	}
}

func TestClassifyFailureMapsExitErr(t *testing.T) {
	err := exitErr{code: exitConfigError, err: errors.New("bad config")}
	if got := classifyFailure(err); got != exitConfigError {
		t.Fatalf("expected exit code %d, got %d", exitConfigError, got)
	}
}

func TestClassifyFailureDefaultsToTransient(t *testing.T) {
	if got := classifyFailure(errors.New("some transient fetch error")); got != exitTransientFail {
		t.Fatalf("expected exit code %d, got %d", exitTransientFail, got)
	}
}
