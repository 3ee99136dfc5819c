package auth

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// committingWriter saves the session and sets its cookie once, right before the
// first byte of the response goes out. Gin handlers write through c.Writer, so
// scs's own net/http LoadAndSave cannot be used.
type committingWriter struct {
	gin.ResponseWriter
	once   sync.Once
	commit func(http.ResponseWriter)
}

func (w *committingWriter) flush() {
	w.once.Do(func() { w.commit(w.ResponseWriter) })
}

func (w *committingWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *committingWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *committingWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *committingWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

func (w *committingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// SessionLoadSave loads the session into the request context and saves it
// when the response is written. It must run before any session access.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			log.Printf("[SESSION] load failed: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &committingWriter{ResponseWriter: c.Writer, commit: func(rw http.ResponseWriter) {
			switch sm.Status(ctx) {
			case scs.Modified:
				token, expiry, err := sm.Commit(ctx)
				if err != nil {
					log.Printf("[SESSION] commit failed: %v", err)
					return
				}
				sm.WriteSessionCookie(ctx, rw, token, expiry)
			case scs.Destroyed:
				sm.WriteSessionCookie(ctx, rw, "", time.Time{})
			}
		}}
		c.Writer = w

		c.Next()

		// Responses without a body still need the cookie
		w.flush()
	}
}
