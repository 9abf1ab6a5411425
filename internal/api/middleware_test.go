package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codr1/Rollcall/internal/api/authz"
)

func TestWithUserResolvesHeader(t *testing.T) {
	cases := []struct {
		header string
		want   int64
	}{
		{"42", 42},
		{" 7 ", 7},
		{"", 0},
		{"abc", 0},
		{"-3", 0},
	}
	for _, tc := range cases {
		var got int64
		h := WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := authz.UserFromContext(r.Context()); user != nil {
				got = user.ID
			}
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set(UserIDHeader, tc.header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != tc.want {
			t.Fatalf("header %q: got user %d want %d", tc.header, got, tc.want)
		}
	}
}

func TestChainSetsRequestIDAndRecovers(t *testing.T) {
	var seenID string
	h := ChainMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		panic("boom")
	}), WithLogging, WithRecovery, WithRequestID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
	if seenID == "" || rec.Header().Get("X-Request-ID") != seenID {
		t.Fatalf("request id mismatch: context %q header %q", seenID, rec.Header().Get("X-Request-ID"))
	}
}
