package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsFindsWrappedStatus(t *testing.T) {
	denied := errors.New("enrollment required")
	err := fmt.Errorf("view lesson: %w", Forbidden("enrollment_required", denied))

	ae, ok := As(err)
	if !ok || ae.Status != http.StatusForbidden || ae.Code != "enrollment_required" {
		t.Fatalf("As: ok=%v err=%+v", ok, ae)
	}
	if !errors.Is(err, denied) {
		t.Fatalf("cause lost: %v", err)
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Fatalf("plain error should not match")
	}
	if _, ok := As(&Error{Code: "no_status"}); ok {
		t.Fatalf("error without status should not match")
	}
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{New(http.StatusForbidden, "enrollment_required", errors.New("enroll first")), "enroll first"},
		{New(http.StatusForbidden, "enrollment_required", nil), "enrollment_required"},
		{New(http.StatusNotFound, "", nil), "Not Found (404)"},
		{&Error{}, "request failed"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error(): want=%q got=%q", tc.want, got)
		}
	}
}
