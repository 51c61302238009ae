package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/deskllm/gateway/internal/catalog"
)

func TestStatusForMapsErrorTaxonomy(t *testing.T) {
	tests := []struct {
		kind catalog.ErrKind
		want int
	}{
		{catalog.ErrConfigMissing, 404},
		{catalog.ErrConfigInvalid, 400},
		{catalog.ErrInvalidConfig, 400},
		{catalog.ErrUnknownProvider, 404},
		{catalog.ErrConfigIO, 502},
		{catalog.ErrNetworkError, 502},
		{catalog.ErrProviderError, 502},
		{catalog.ErrProtocolError, 502},
		{catalog.ErrUnexpectedEnd, 502},
		{catalog.ErrKind("something_unmapped"), 500},
	}
	for _, tt := range tests {
		if got := statusFor(tt.kind); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestWriteErrorUsesTaxonomyStatusAndBody(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, &catalog.Error{Kind: catalog.ErrUnknownProvider, Message: "no such provider"})

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
	want := `{"kind":"unknown_provider","message":"unknown_provider: no such provider"}`
	if w.Body.String() != want {
		t.Fatalf("body = %s, want %s", w.Body.String(), want)
	}
}

func TestWriteErrorFallsBackToInternalForUntaggedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errPlain{"boom"})

	if w.Code != 500 {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

type errPlain struct{ msg string }

func (e errPlain) Error() string { return e.msg }

func TestWriteJSONSetsContentTypeAndStatus(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, 201, responseMessage{Message: "ok"})

	if w.Code != 201 {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if w.Body.String() != `{"message":"ok"}` {
		t.Fatalf("body = %s", w.Body.String())
	}
}
