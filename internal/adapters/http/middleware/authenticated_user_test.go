package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticatedUser(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   int64
	}{
		{name: "valid", header: " 42 ", want: 42},
		{name: "missing", header: "", want: 0},
		{name: "garbage", header: "admin", want: 0},
		{name: "negative", header: "-3", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got int64 = -1
			h := AuthenticatedUser("X-Auth-User-Id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = UserIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/forms/1/submissions", nil)
			if tc.header != "" {
				req.Header.Set("X-Auth-User-Id", tc.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tc.want {
				t.Fatalf("expected user id %d, got %d", tc.want, got)
			}
		})
	}
}

func TestUserIDFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := UserIDFromContext(req.Context()); id != 0 {
		t.Fatalf("expected anonymous request, got user %d", id)
	}
}
