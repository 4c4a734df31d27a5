package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"community_chat/internal/pkg"

	"github.com/gin-gonic/gin"
)

var testSecret = []byte("test-secret")

type fakeSessions struct {
	tokens   map[uint64]string
	extended []uint64
}

func (f *fakeSessions) GetUserToken(_ context.Context, userID uint64) (string, error) {
	tok, ok := f.tokens[userID]
	if !ok {
		return "", errors.New("token not found")
	}
	return tok, nil
}

func (f *fakeSessions) ExtendUserToken(_ context.Context, userID uint64) error {
	f.extended = append(f.extended, userID)
	return nil
}

func newAuthRouter(sessions SessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(testSecret, sessions))
	r.GET("/me", func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "username": c.GetString(ContextUsernameKey)})
	})
	return r
}

func doGet(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	r := newAuthRouter(nil)
	tok, err := pkg.IssueAccess(testSecret, 7, "alice", "alice@example.com", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, _ := pkg.IssueAccess([]byte("other"), 7, "alice", "alice@example.com", 0)

	cases := []struct {
		name string
		auth string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer", "Token " + tok, http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + other, http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"ok", "Bearer " + tok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doGet(r, tc.auth)
			if rec.Code != tc.want {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareSession(t *testing.T) {
	tok, _ := pkg.IssueAccess(testSecret, 7, "alice", "alice@example.com", 0)
	stale, _ := pkg.IssueAccess(testSecret, 7, "alice", "old@example.com", 0)
	sessions := &fakeSessions{tokens: map[uint64]string{7: tok}}
	r := newAuthRouter(sessions)

	if rec := doGet(r, "Bearer "+stale); rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale token: got=%d", rec.Code)
	}
	if rec := doGet(r, "Bearer "+tok); rec.Code != http.StatusOK {
		t.Fatalf("current token: got=%d", rec.Code)
	}
	if len(sessions.extended) != 1 || sessions.extended[0] != 7 {
		t.Fatalf("session should be extended once: %v", sessions.extended)
	}
}

func TestRequestIDHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "req-123" || rec.Body.String() != "req-123" {
		t.Fatalf("propagated id: header=%q body=%q", got, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); len(got) != 36 {
		t.Fatalf("generated id: got %q", got)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	origin := "https://chat.example.com"
	r := gin.New()
	r.Use(CORS([]string{origin}))
	r.POST("/api/communities", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/api/communities", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status: got=%d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
		t.Fatalf("allow-origin: got=%q", got)
	}
}
