package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodePartialApplication, http.StatusConflict},
		{CodeForbidden, http.StatusForbidden},
	}
	for _, tc := range tests {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("MetadataFor(%s).HTTPStatus = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := Wrap(CodeDependency, cause, "persist order")
	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("code = %s, want %s", err.Code(), CodeDependency)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeConflict, "coupon already used")
	outer := fmt.Errorf("checkout: %w", inner)
	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeConflict {
		t.Fatalf("code = %s, want %s", typed.Code(), CodeConflict)
	}
	if !HasCode(outer, CodeConflict) {
		t.Fatal("HasCode should see the conflict code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodePartialApplication, "inventory debit incomplete").
		WithDetails(map[string]any{"applied": 2})
	details, ok := err.Details().(map[string]any)
	if !ok || details["applied"] != 2 {
		t.Fatalf("unexpected details: %v", err.Details())
	}
}
