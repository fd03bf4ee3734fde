package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatusTaxonomy(t *testing.T) {
	cases := map[int]Kind{
		http.StatusBadRequest:          KindBadRequest,
		http.StatusUnauthorized:        KindUnauthorized,
		http.StatusForbidden:           KindForbidden,
		http.StatusNotFound:            KindNotFound,
		http.StatusTooManyRequests:     KindRateLimited,
		http.StatusServiceUnavailable:  KindNetwork,
		http.StatusInternalServerError: KindUnknown,
	}
	for status, want := range cases {
		if got := FromStatus(status, "").Kind; got != want {
			t.Fatalf("status %d: expected %s, got %s", status, want, got)
		}
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	base := NotFound("title not found")
	wrapped := fmt.Errorf("load title: %w", base)
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected not_found, got %s", KindOf(wrapped))
	}
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Fatalf("expected unknown for plain errors")
	}
	if KindOf(fmt.Errorf("call: %w", context.DeadlineExceeded)) != KindNetwork {
		t.Fatalf("expected deadline to classify as network")
	}
}

func TestPublicMessageHidesCauses(t *testing.T) {
	if msg := PublicMessage(errors.New("sql: database is locked")); msg != "internal error" {
		t.Fatalf("expected generic message, got %q", msg)
	}
	if msg := PublicMessage(Wrap(errors.New("x"), KindNetwork, "tmdb unavailable")); msg != "tmdb unavailable" {
		t.Fatalf("expected explicit message, got %q", msg)
	}
}

func TestHTTPStatus(t *testing.T) {
	if HTTPStatus(KindRateLimited) != http.StatusTooManyRequests {
		t.Fatalf("rate limited should map to 429")
	}
	if HTTPStatus(KindNetwork) != http.StatusBadGateway {
		t.Fatalf("network should map to 502")
	}
	if HTTPStatus(KindUnknown) != http.StatusInternalServerError {
		t.Fatalf("unknown should map to 500")
	}
}
