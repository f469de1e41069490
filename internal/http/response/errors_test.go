package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/apierr"
	"github.com/yungbote/coursetrack-backend/internal/platform/vimeo"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domainagg.NewError(domainagg.CodeValidation, "op", "bad", nil), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("wrapped: %w", domainagg.NewError(domainagg.CodeNotFound, "op", "gone", nil)), http.StatusNotFound, "not_found"},
		{domainagg.NewError(domainagg.CodeRetryable, "op", "busy", nil), http.StatusConflict, "conflict"},
		{domainagg.NewError(domainagg.CodePreconditionFailed, "op", "draft", nil), http.StatusUnprocessableEntity, "precondition_failed"},
		{apierr.New(http.StatusForbidden, "enrollment_required", errors.New("nope")), http.StatusForbidden, "enrollment_required"},
		{vimeo.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
		{errors.New("db down"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code, _ := Classify(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, status, code)
		}
	}
}
