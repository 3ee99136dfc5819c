package http

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/parsers"
)

// FileField is the multipart field carrying an import file.
const FileField = "file"

// ImportResponse is returned after a bulk import.
type ImportResponse struct {
	Message string            `json:"message"`
	Data    *importers.Result `json:"data"`
	Report  string            `json:"report,omitempty"`
}

// TransferController handles bulk import and export for every catalog resource.
type TransferController struct {
	catalog *library.Catalog
	reports *audit.Reports
	feedback
}

func NewTransferController(catalog *library.Catalog, reports *audit.Reports, sessions *auth.SessionManager, auditSvc *audit.Service) *TransferController {
	return &TransferController{
		catalog:  catalog,
		reports:  reports,
		feedback: feedback{sessions: sessions, audit: auditSvc},
	}
}

// transfer resolves the resource from the route, responding 404 when unknown.
func (tc *TransferController) transfer(c *gin.Context, name string) (library.Transfer, bool) {
	t, ok := tc.catalog.Transfer(name)
	if !ok {
		respondNotFound(c, "resource "+name)
	}
	return t, ok
}

// Import returns the handler for POST /api/<resource>/import.
func (tc *TransferController) Import(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := tc.transfer(c, name)
		if !ok {
			return
		}

		upload, err := c.FormFile(FileField)
		if err != nil {
			respondBadRequest(c, "file is required")
			return
		}
		f, err := upload.Open()
		if err != nil {
			respondInternalError(c, err, "open import file")
			return
		}
		defer f.Close()

		result, err := t.Import(c.Request.Context(), f, upload.Filename)
		if err != nil {
			tc.audit.LogImport(name, batchID(result), imported(result), skipped(result), c.ClientIP(), err)
			respondDomainError(c, err, "import "+name)
			return
		}

		resp := ImportResponse{
			Message: fmt.Sprintf("Stored %s successfully", name),
			Data:    result,
		}
		if result.Skipped > 0 && tc.reports != nil {
			report, err := tc.reports.Save(result.BatchID, result)
			if err != nil {
				log.Printf("[IMPORT] could not save report for batch %s: %v", result.BatchID, err)
			}
			resp.Report = report
		}

		tc.flash(c, resp.Message)
		tc.audit.LogImport(name, result.BatchID, result.Imported, result.Skipped, c.ClientIP(), nil)
		c.JSON(http.StatusOK, resp)
	}
}

// Export returns the handler for GET /api/<resource>/export?format=csv|xlsx.
// The file is built in memory first so a failure still produces a JSON error.
func (tc *TransferController) Export(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := tc.transfer(c, name)
		if !ok {
			return
		}

		format, err := parsers.ParseFormat(c.DefaultQuery("format", string(parsers.FormatCSV)))
		if err != nil {
			respondDomainError(c, err, "export "+name)
			return
		}

		var buf bytes.Buffer
		result, err := t.Export(c.Request.Context(), &buf, format)
		if err != nil {
			tc.audit.LogExport(name, string(format), 0, c.ClientIP(), err)
			respondDomainError(c, err, "export "+name)
			return
		}

		tc.audit.LogExport(name, result.Format, result.Records, c.ClientIP(), nil)
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, t.Filename(format)))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}

func batchID(r *importers.Result) string {
	if r == nil {
		return ""
	}
	return r.BatchID
}

func imported(r *importers.Result) int {
	if r == nil {
		return 0
	}
	return r.Imported
}

func skipped(r *importers.Result) int {
	if r == nil {
		return 0
	}
	return r.Skipped
}
