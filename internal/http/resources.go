package http

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/attachments"
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/errors"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/listing"
)

// ImageField is the multipart field carrying an uploaded image.
const ImageField = "image"

type labeled interface {
	Label() string
}

// feedback delivers the outcome of a mutation to the session flash and the
// audit trail. Both are optional.
type feedback struct {
	sessions *auth.SessionManager
	audit    *audit.Service
}

func (f feedback) flash(c *gin.Context, message string) {
	if f.sessions != nil {
		f.sessions.PutFlash(c.Request.Context(), message)
	}
}

// ListResponse is one listing page plus ready-made links to its neighbours.
type ListResponse[T any] struct {
	listing.Page[T]
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}

func newListResponse[T any](c *gin.Context, page listing.Page[T], images *attachments.Manager) ListResponse[T] {
	for i := range page.Items {
		decorate(images, &page.Items[i])
	}
	resp := ListResponse[T]{Page: page}
	if q := page.NextQuery(); q != "" {
		resp.Next = c.Request.URL.Path + "?" + q
	}
	if q := page.PrevQuery(); q != "" {
		resp.Prev = c.Request.URL.Path + "?" + q
	}
	return resp
}

// decorate fills in the public URL of a record's preloaded image.
func decorate[T any](images *attachments.Manager, rec *T) {
	if images == nil {
		return
	}
	if owner, ok := any(rec).(entities.Owner); ok {
		images.Decorate(owner.Attachment())
	}
}

// ResourceController serves list, show, create, update and delete for one
// catalog resource. Records that can own an image accept an optional
// multipart "image" file on create and update.
type ResourceController[T any] struct {
	res    *library.Resource[T]
	images *attachments.Manager
	feedback
}

func NewResourceController[T any](res *library.Resource[T], images *attachments.Manager, sessions *auth.SessionManager, auditSvc *audit.Service) *ResourceController[T] {
	return &ResourceController[T]{
		res:      res,
		images:   images,
		feedback: feedback{sessions: sessions, audit: auditSvc},
	}
}

// Index handles GET /api/:resource?search_query=&page=
func (rc *ResourceController[T]) Index(c *gin.Context) {
	page, err := rc.res.Listing.ListPage(c.Request.Context(), listing.Request{
		Search: c.Query(listing.SearchParam),
		Page:   listing.ParsePage(c.Query(listing.PageParam)),
	})
	if err != nil {
		respondDomainError(c, err, "list "+rc.res.Name)
		return
	}
	c.JSON(http.StatusOK, newListResponse(c, page, rc.images))
}

// Show handles GET /api/:resource/:id
func (rc *ResourceController[T]) Show(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rec, err := rc.res.Records.Get(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "get "+rc.res.Entity())
		return
	}
	decorate(rc.images, rec)
	c.JSON(http.StatusOK, rec)
}

// Store handles POST /api/:resource
func (rc *ResourceController[T]) Store(c *gin.Context) {
	input, upload, ok := rc.bind(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	rec, err := rc.res.Records.Create(ctx, input)
	if err != nil {
		rc.audit.LogRecord(entities.AuditEventCreate, rc.res.Entity(), 0, "", c.ClientIP(), err)
		respondDomainError(c, err, "create "+rc.res.Entity())
		return
	}
	id := rc.res.Records.ID(ctx, rec)

	if upload != nil {
		if err := rc.attach(c, rec, upload); err != nil {
			// The record is only kept together with its image.
			if delErr := rc.res.Records.Delete(ctx, id); delErr != nil {
				respondInternalError(c, fmt.Errorf("%w; rollback failed: %v", err, delErr), "create "+rc.res.Entity())
				return
			}
			respondDomainError(c, err, "attach image")
			return
		}
		if rec, err = rc.res.Records.Get(ctx, id); err != nil {
			respondDomainError(c, err, "get "+rc.res.Entity())
			return
		}
	}

	label := labelOf(rec, rc.res.Entity())
	message := fmt.Sprintf("%s was stored in library", label)
	rc.flash(c, message)
	rc.audit.LogRecord(entities.AuditEventCreate, rc.res.Entity(), id, label, c.ClientIP(), nil)

	decorate(rc.images, rec)
	respondCreated(c, message, rec)
}

// Update handles PUT /api/:resource/:id
func (rc *ResourceController[T]) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	input, upload, ok := rc.bind(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	rec, err := rc.res.Records.Update(ctx, id, input)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			rc.audit.LogRecord(entities.AuditEventUpdate, rc.res.Entity(), id, "", c.ClientIP(), err)
		}
		respondDomainError(c, err, "update "+rc.res.Entity())
		return
	}

	if upload != nil {
		if err := rc.attach(c, rec, upload); err != nil {
			respondDomainError(c, err, "attach image")
			return
		}
		if rec, err = rc.res.Records.Get(ctx, id); err != nil {
			respondDomainError(c, err, "get "+rc.res.Entity())
			return
		}
	}

	label := labelOf(rec, rc.res.Entity())
	message := fmt.Sprintf("%s was updated", label)
	rc.flash(c, message)
	rc.audit.LogRecord(entities.AuditEventUpdate, rc.res.Entity(), id, label, c.ClientIP(), nil)

	decorate(rc.images, rec)
	respondSuccess(c, message, rec)
}

// Destroy handles DELETE /api/:resource/:id. The record's image, if any, is
// removed with it.
func (rc *ResourceController[T]) Destroy(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	rec, err := rc.res.Records.Get(ctx, id)
	if err != nil {
		respondDomainError(c, err, "delete "+rc.res.Entity())
		return
	}
	if err := rc.res.Records.Delete(ctx, id); err != nil {
		rc.audit.LogRecord(entities.AuditEventDelete, rc.res.Entity(), id, "", c.ClientIP(), err)
		respondDomainError(c, err, "delete "+rc.res.Entity())
		return
	}

	if owner, ok := any(rec).(entities.Owner); ok && rc.images != nil {
		if err := rc.images.Detach(ctx, owner.OwnerRef()); err != nil && !errors.Is(err, errors.ErrNotFound) {
			// The blob is left to the sweeper.
			respondInternalError(c, err, "detach image")
			return
		}
	}

	label := labelOf(rec, rc.res.Entity())
	message := fmt.Sprintf("%s was removed from library", label)
	rc.flash(c, message)
	rc.audit.LogRecord(entities.AuditEventDelete, rc.res.Entity(), id, label, c.ClientIP(), nil)

	c.JSON(http.StatusOK, SuccessResponse{Message: message, Redirect: "/api/" + rc.res.Name})
}

// bind reads the submitted fields and the optional image upload. It responds
// and returns false when the request cannot be used.
func (rc *ResourceController[T]) bind(c *gin.Context) (map[string]string, *multipart.FileHeader, bool) {
	input, err := bindInput(c)
	if err != nil {
		respondDomainError(c, err, "bind "+rc.res.Entity())
		return nil, nil, false
	}
	if !isMultipart(c) {
		return input, nil, true
	}

	upload, err := c.FormFile(ImageField)
	if err == http.ErrMissingFile {
		return input, nil, true
	}
	if err != nil {
		respondBadRequest(c, "invalid image upload")
		return nil, nil, false
	}

	var zero T
	if _, ok := any(&zero).(entities.Owner); !ok || rc.images == nil {
		respondDomainError(c, errors.ValidationWithDetails("invalid input", map[string]string{
			ImageField: fmt.Sprintf("is not supported for %s", rc.res.Entity()),
		}), "bind "+rc.res.Entity())
		return nil, nil, false
	}
	return input, upload, true
}

func (rc *ResourceController[T]) attach(c *gin.Context, rec *T, upload *multipart.FileHeader) error {
	owner := any(rec).(entities.Owner).OwnerRef()

	f, err := upload.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	img, err := rc.images.Attach(c.Request.Context(), owner, f, upload.Filename)
	if err != nil {
		rc.audit.LogAttach(owner, upload.Filename, err)
		return err
	}
	rc.audit.LogAttach(owner, img.Filename, nil)
	return nil
}

func labelOf[T any](rec *T, fallback string) string {
	if l, ok := any(rec).(labeled); ok && l.Label() != "" {
		return l.Label()
	}
	return fallback
}
