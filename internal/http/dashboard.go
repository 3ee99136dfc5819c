package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/attachments"
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/listing"
)

const borrowRequestEntity = "borrow request"

// DashboardResponse is the admin landing view.
type DashboardResponse struct {
	Counts         map[string]int64                      `json:"counts"`
	BorrowRequests ListResponse[entities.BorrowRequest] `json:"borrow_requests"`
}

// DashboardController serves record counts, pending borrow requests and the
// members listing.
type DashboardController struct {
	catalog *library.Catalog
	images  *attachments.Manager
	feedback
}

func NewDashboardController(catalog *library.Catalog, images *attachments.Manager, sessions *auth.SessionManager, auditSvc *audit.Service) *DashboardController {
	return &DashboardController{
		catalog:  catalog,
		images:   images,
		feedback: feedback{sessions: sessions, audit: auditSvc},
	}
}

// Dashboard handles GET /api/dashboard?search_query=&page=
// The search and page apply to the borrow request list.
func (dc *DashboardController) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := dc.catalog.Counts(ctx)
	if err != nil {
		respondInternalError(c, err, "dashboard counts")
		return
	}

	requests, err := dc.catalog.BorrowRequestListing.ListPage(ctx, listing.Request{
		Search: c.Query(listing.SearchParam),
		Page:   listing.ParsePage(c.Query(listing.PageParam)),
	})
	if err != nil {
		respondDomainError(c, err, "list borrow requests")
		return
	}

	c.JSON(http.StatusOK, DashboardResponse{
		Counts:         counts,
		BorrowRequests: newListResponse(c, requests, nil),
	})
}

// DeleteBorrowRequest handles DELETE /api/dashboard/borrow_requests/:id
func (dc *DashboardController) DeleteBorrowRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := dc.catalog.BorrowRequests.Delete(c.Request.Context(), id); err != nil {
		respondDomainError(c, err, "delete borrow request")
		return
	}

	message := "Borrow request was removed"
	dc.flash(c, message)
	dc.audit.LogRecord(entities.AuditEventDelete, borrowRequestEntity, id, "", c.ClientIP(), nil)
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Redirect: "/api/dashboard"})
}

// Members handles GET /api/members?search_query=&page=
func (dc *DashboardController) Members(c *gin.Context) {
	page, err := dc.catalog.Members(c.Request.Context(), c.Query(listing.SearchParam), listing.ParsePage(c.Query(listing.PageParam)))
	if err != nil {
		respondDomainError(c, err, "list members")
		return
	}
	c.JSON(http.StatusOK, newListResponse(c, page, dc.images))
}

// Flash handles GET /api/flash. It returns and clears the pending message.
func (dc *DashboardController) Flash(c *gin.Context) {
	message := ""
	if dc.sessions != nil {
		message = dc.sessions.PopFlash(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
