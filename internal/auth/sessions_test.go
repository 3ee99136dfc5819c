package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSessionManager(t *testing.T) *SessionManager {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sessions.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	sm, err := NewSessionManager(sqlDB, SessionConfig{})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestNewSessionManager(t *testing.T) {
	sm := setupSessionManager(t)

	if sm.Cookie.Name != "session" {
		t.Errorf("Expected cookie name 'session', got '%s'", sm.Cookie.Name)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("Cookie should be HttpOnly")
	}
	if sm.Lifetime != DefaultSessionLifetime {
		t.Errorf("Expected default lifetime, got %v", sm.Lifetime)
	}
}

func TestFlash_SurvivesOneRequest(t *testing.T) {
	sm := setupSessionManager(t)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.POST("/books", func(c *gin.Context) {
		sm.PutFlash(c.Request.Context(), "Dune was stored in library")
		c.Status(http.StatusCreated)
	})
	router.GET("/flash", func(c *gin.Context) {
		c.String(http.StatusOK, sm.PopFlash(c.Request.Context()))
	})

	store := httptest.NewRecorder()
	router.ServeHTTP(store, httptest.NewRequest(http.MethodPost, "/books", nil))
	cookies := store.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie after storing a flash")
	}

	read := func() string {
		req := httptest.NewRequest(http.MethodGet, "/flash", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Body.String()
	}

	if got := read(); got != "Dune was stored in library" {
		t.Errorf("first read = %q, want flash message", got)
	}
	if got := read(); got != "" {
		t.Errorf("second read = %q, want empty", got)
	}
}
