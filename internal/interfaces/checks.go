package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/librarian/internal/attachments"
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/database/images"
	"github.com/mrlokans/librarian/internal/database/records"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/exporters"
	"github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/listing"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/storage"
	"github.com/mrlokans/librarian/internal/tasks"
)

// =============================================================================
// Record Store
// =============================================================================

var _ listing.Store[entities.Book] = (*records.Repository[entities.Book])(nil)
var _ importers.Store[entities.Book] = (*records.Repository[entities.Book])(nil)
var _ exporters.Store[entities.Book] = (*records.Repository[entities.Book])(nil)

var _ library.Transfer = (*library.Resource[entities.Book])(nil)

// =============================================================================
// Attachments
// =============================================================================

var _ attachments.ImageStore = (*images.Repository)(nil)
var _ storage.BlobStore = (*storage.FileSystem)(nil)

var _ entities.Owner = (*entities.Book)(nil)
var _ entities.Owner = (*entities.Author)(nil)
var _ entities.Owner = (*entities.User)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.OrphanSweeper = (*attachments.Sweeper)(nil)
var _ tasks.SweepReporter = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
