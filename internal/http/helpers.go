package http

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/errors"
)

// ErrorResponse is the JSON envelope of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"` // field errors for VALIDATION
}

// SuccessResponse is the JSON envelope of a completed mutation. Redirect names
// the listing the client should return to.
type SuccessResponse struct {
	Message  string `json:"message"`
	Data     any    `json:"data,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// OffsetPage is a limit/offset window over a larger result set.
type OffsetPage struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func newOffsetPage(data any, count int, total int64, limit, offset int) OffsetPage {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return OffsetPage{
		Data:       data,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+count) < total,
		TotalPages: max(pages, 1),
	}
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: string(errors.CodeValidation)})
}

func respondNotFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: what + " not found", Code: string(errors.CodeNotFound)})
}

// respondInternalError hides err from the client and logs it with the failing
// operation.
func respondInternalError(c *gin.Context, err error, op string) {
	log.Printf("[HTTP ERROR] %s (%s): %v", op, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: string(errors.CodeInternal)})
}

// respondDomainError maps coded errors to their status and falls back to a 500
// for everything else.
func respondDomainError(c *gin.Context, err error, op string) {
	var domainErr *errors.Error
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus() >= http.StatusInternalServerError {
		respondInternalError(c, err, op)
		return
	}
	c.JSON(domainErr.HTTPStatus(), ErrorResponse{
		Error:   domainErr.Message,
		Code:    string(domainErr.Code),
		Details: domainErr.Details,
	})
}

func respondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, SuccessResponse{Message: message, Data: data})
}

// respondAccepted reports work handed to the task queue.
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// parseIDParam reads a positive record id from the route. On failure it has
// already responded with 400.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// bindInput collects submitted fields from a JSON object, a urlencoded form or
// a multipart form. Values are passed on as strings; the record schema decides
// what they mean.
func bindInput(c *gin.Context) (map[string]string, error) {
	input := make(map[string]string)

	if c.ContentType() == gin.MIMEJSON {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, errors.Validation("request body must be a JSON object")
		}
		for k, v := range body {
			if s, ok := jsonString(v); ok {
				input[k] = s
			}
		}
		return input, nil
	}

	if isMultipart(c) {
		if _, err := c.MultipartForm(); err != nil {
			return nil, errors.Validation("malformed multipart form")
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return nil, errors.Validation("malformed form")
	}
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			input[k] = vs[0]
		}
	}
	return input, nil
}

func jsonString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm)
}
