package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidErr("x", nil), http.StatusBadRequest},
		{&AppError{Kind: Invalid, Status: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity},
		{NotFoundErr("x"), http.StatusNotFound},
		{UnauthorizedErr("x"), http.StatusUnauthorized},
		{ForbiddenErr("x"), http.StatusForbidden},
		{ConflictErr("x"), http.StatusConflict},
		{&AppError{Kind: Timeout}, http.StatusGatewayTimeout},
		{&AppError{Kind: Unavailable}, http.StatusBadGateway},
		{Wrap(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestPublicMessage_Wrapped(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ConflictErr("Stock insuficiente"))
	if PublicMessage(err) != "Stock insuficiente" {
		t.Fatalf("unexpected message %q", PublicMessage(err))
	}
	if PublicMessage(errors.New("x")) != genericMsg {
		t.Fatalf("expected generic message")
	}
	if !IsKind(err, Conflict) {
		t.Fatalf("expected conflict kind")
	}
}
