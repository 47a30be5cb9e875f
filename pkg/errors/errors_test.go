package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeInvalidTransition, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInsufficientFunds, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInvalidParties, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeStoreUnavailable, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s should carry a public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("expected conflict code, got %s", wrapped.Code())
	}

	outer := fmt.Errorf("outer: %w", wrapped)
	if !IsCode(outer, CodeConflict) {
		t.Fatalf("IsCode should see through fmt wrapping")
	}
	if IsCode(cause, CodeConflict) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestStoreUnavailableKeepsTypedErrors(t *testing.T) {
	if StoreUnavailable(nil, "noop") != nil {
		t.Fatal("nil error should stay nil")
	}

	notFound := New(CodeNotFound, "user not found")
	if got := StoreUnavailable(notFound, "load user"); got != notFound {
		t.Fatalf("typed errors must pass through, got %v", got)
	}

	raw := stdErrors.New("connection refused")
	got := StoreUnavailable(raw, "load user")
	if !IsCode(got, CodeStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", got)
	}
	if !stdErrors.Is(got, raw) {
		t.Fatal("cause should be preserved")
	}
}

func TestDumpCapturesDriverDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users", Message: "duplicate key"}
	dump := Dump(Wrap(CodeStoreUnavailable, pgErr, "insert user"))
	if dump.Code != CodeStoreUnavailable {
		t.Fatalf("expected code in dump, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "users_email_key" || dump.PGTable != "users" {
		t.Fatalf("pgx diagnostics missing: %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}

	pqErr := &pq.Error{Code: "40001", Table: "contracts", Message: "serialization failure"}
	dump = Dump(fmt.Errorf("update: %w", pqErr))
	if dump.PGCode != "40001" || dump.PGTable != "contracts" {
		t.Fatalf("lib/pq diagnostics missing: %+v", dump)
	}
}
