package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestHTTPStatus_FollowsTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"bad input", BadInput("x", nil), http.StatusBadRequest},
		{"missing room", MissingRoomID(nil), http.StatusBadRequest},
		{"missing user", MissingUserIdentity(nil), http.StatusBadRequest},
		{"not found", InstallationNotFound("i"), http.StatusNotFound},
		{"auth", AuthenticationFailed(errors.New("denied"), nil), http.StatusUnauthorized},
		{"api", APICallFailed(nil, "", nil), http.StatusBadGateway},
		{"setup", InstallationSetupFailed(nil, "", nil), http.StatusBadGateway},
		{"internal", Internal("x", nil), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", InstallationNotFound("i")), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Fatalf("HTTPStatus = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWrapError_OuterEnvelopeWins(t *testing.T) {
	inner := BadInput("inner", nil)
	outer := InstallationSetupFailed(inner, "setup", map[string]any{"installation_id": "i"})

	if TextCodeOf(outer) != ErrorInstallationSetupFailed {
		t.Fatalf("expected outer text code, got %q", TextCodeOf(outer))
	}
	var rich *goerrors.Error
	if !goerrors.As(outer, &rich) {
		t.Fatalf("expected go-errors envelope")
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %s", rich.Category)
	}
	if HTTPStatus(outer) != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", HTTPStatus(outer))
	}
}

func TestWrapError_KeepsSourceInChain(t *testing.T) {
	source := errors.New("dial tcp: refused")
	err := APICallFailed(source, "send notification", map[string]any{"status_code": 0})
	if !errors.Is(err, source) {
		t.Fatalf("expected source error in chain")
	}
	if !HasTextCode(err, ErrorAPICallFailed) {
		t.Fatalf("expected api call failed code, got %q", TextCodeOf(err))
	}
	if HasTextCode(nil, ErrorAPICallFailed) || TextCodeOf(source) != "" {
		t.Fatalf("plain errors carry no text code")
	}
}
