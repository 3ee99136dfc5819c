package http

import (
	"github.com/mrlokans/librarian/internal/attachments"
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Catalog  *library.Catalog
	Database *database.Database
	Audit    *audit.Service
	Reports  *audit.Reports

	// Images
	Attachments *attachments.Manager
	Sweeper     tasks.OrphanSweeper
	StorageDir  string
	PublicPath  string

	// Task queue (optional). Without it maintenance runs inline.
	TaskQueue TaskQueue

	// Sessions and CSRF. CSRF is enabled when CSRFSecret is set.
	Sessions      *auth.SessionManager
	CSRFSecret    []byte
	SecureCookies bool

	// CORS is enabled when at least one origin is listed.
	CORSAllowedOrigins []string

	MetricsEnabled bool

	// MaxUploadBytes bounds the memory used to parse multipart bodies.
	MaxUploadBytes int64

	// Application info
	Version string
}
