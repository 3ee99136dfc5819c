// Package auth holds the request-level protections of the admin API: password
// hashing for user records, cookie sessions carrying flash messages, CSRF
// protection for browser form posts and security response headers.
//
// Access policy (who may call which route) is left to the deployment; nothing
// here decides it.
//
// # Usage
//
//	sessions, err := auth.NewSessionManager(sqlDB, auth.SessionConfig{Lifetime: 24 * time.Hour})
//	router.Use(sessions.SessionLoadSave())
//	sessions.PutFlash(c.Request.Context(), "Dune was stored in library")
//
// Hash a password before it is written to the users table:
//
//	hash, err := auth.HashPassword("correct horse", auth.DefaultBcryptCost)
package auth
