package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
)

func (e *apiEnv) booksCSV(rows ...string) []byte {
	author := strconv.FormatUint(uint64(e.f.AuthorID), 10)
	category := strconv.FormatUint(uint64(e.f.CategoryID), 10)
	shelf := strconv.FormatUint(uint64(e.f.ShelfID), 10)

	lines := []string{"title,isbn,author_id,category_id,shelf_id"}
	for _, r := range rows {
		r = strings.ReplaceAll(r, "{author}", author)
		r = strings.ReplaceAll(r, "{category}", category)
		r = strings.ReplaceAll(r, "{shelf}", shelf)
		lines = append(lines, r)
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestImportBooks(t *testing.T) {
	env := setupAPI(t)
	data := env.booksCSV(
		"Dune,111,{author},{category},{shelf}",
		"Children of Dune,,{author},{category},{shelf}",
		"Heretics of Dune,333,{author},{category},{shelf}",
	)

	w := env.doMultipart("POST", "/api/books/import", nil, map[string]fileUpload{
		FileField: {name: "books.csv", data: data},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ImportResponse](t, w)
	assert.Equal(t, "Stored books successfully", resp.Message)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 2, resp.Data.Imported)
	assert.Equal(t, 1, resp.Data.Skipped)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, 3, resp.Data.Errors[0].Line)
	assert.Equal(t, int64(2), env.f.CountBooks(t))

	require.NotEmpty(t, resp.Report)
	saved, err := os.ReadFile(filepath.Join(env.reportDir, resp.Report))
	require.NoError(t, err)
	assert.Contains(t, string(saved), resp.Data.BatchID)
}

func TestImportRejectsUnsupportedFile(t *testing.T) {
	env := setupAPI(t)

	w := env.doMultipart("POST", "/api/books/import", nil, map[string]fileUpload{
		FileField: {name: "books.txt", data: env.booksCSV("Dune,111,{author},{category},{shelf}")},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FORMAT", decode[bookEnvelope](t, w).Code)
	assert.Equal(t, int64(0), env.f.CountBooks(t))
}

func TestImportRequiresFile(t *testing.T) {
	env := setupAPI(t)

	w := env.doMultipart("POST", "/api/books/import", map[string]string{"other": "x"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}

func TestExportBooks(t *testing.T) {
	env := setupAPI(t)
	_, err := env.f.Catalog.Books.Records.Create(t.Context(), env.f.BookInput("Dune", "111"))
	require.NoError(t, err)

	w := env.do(httptest.NewRequest("GET", "/api/books/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="booklist.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "title,isbn,publisher,date_published,author_id,category_id,shelf_id\n"))
	assert.Contains(t, w.Body.String(), "Dune,111,")

	w = env.do(httptest.NewRequest("GET", "/api/books/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="booklist.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestExportShelves(t *testing.T) {
	env := setupAPI(t)

	w := env.do(httptest.NewRequest("GET", "/api/shelves/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="shelflist.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "name,location\nA1,First floor\n", w.Body.String())
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	env := setupAPI(t)

	for _, format := range []string{"xls", "pdf"} {
		w := env.do(httptest.NewRequest("GET", "/api/books/export?format="+format, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, format)
		assert.Equal(t, "FORMAT", decode[bookEnvelope](t, w).Code)
		assert.Empty(t, w.Header().Get("Content-Disposition"))
	}
}

func TestDashboard(t *testing.T) {
	env := setupAPI(t)
	ctx := t.Context()

	book, err := env.f.Catalog.Books.Records.Create(ctx, env.f.BookInput("Dune", "111"))
	require.NoError(t, err)
	user, err := env.f.Catalog.Users.Records.Create(ctx, map[string]string{
		"name":     "Paul",
		"email":    "paul@arrakis.test",
		"password": "spice-must-flow",
		"role_id":  strconv.FormatUint(uint64(env.f.MemberRole), 10),
	})
	require.NoError(t, err)
	req := entities.BorrowRequest{UserID: user.ID, BookID: book.ID}
	require.NoError(t, env.f.DB.DB.Create(&req).Error)

	w := env.do(httptest.NewRequest("GET", "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	dash := decode[struct {
		Counts         map[string]int64 `json:"counts"`
		BorrowRequests struct {
			Data  []entities.BorrowRequest `json:"data"`
			Total int64                    `json:"total"`
		} `json:"borrow_requests"`
	}](t, w)
	assert.Equal(t, int64(1), dash.Counts["books"])
	assert.Equal(t, int64(1), dash.Counts["users"])
	assert.Equal(t, int64(1), dash.Counts["shelves"])
	assert.Equal(t, int64(1), dash.Counts["borrow_requests"])
	require.Len(t, dash.BorrowRequests.Data, 1)
	require.NotNil(t, dash.BorrowRequests.Data[0].Book)
	assert.Equal(t, "Dune", dash.BorrowRequests.Data[0].Book.Title)

	path := "/api/dashboard/borrow_requests/" + strconv.FormatUint(uint64(req.ID), 10)
	w = env.do(httptest.NewRequest("DELETE", path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api/dashboard", decode[bookEnvelope](t, w).Redirect)

	w = env.do(httptest.NewRequest("DELETE", path, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMembersListsOnlyMembers(t *testing.T) {
	env := setupAPI(t)
	ctx := t.Context()

	for _, u := range []struct {
		name string
		role uint
	}{
		{"Admin Person", env.f.AdminRole},
		{"Member Person", env.f.MemberRole},
	} {
		_, err := env.f.Catalog.Users.Records.Create(ctx, map[string]string{
			"name":     u.name,
			"email":    strings.ReplaceAll(strings.ToLower(u.name), " ", ".") + "@example.test",
			"password": "long-enough-password",
			"role_id":  strconv.FormatUint(uint64(u.role), 10),
		})
		require.NoError(t, err)
	}

	w := env.do(httptest.NewRequest("GET", "/api/members", nil))
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[struct {
		Data  []entities.User `json:"data"`
		Total int64           `json:"total"`
	}](t, w)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Member Person", page.Data[0].Name)
	assert.NotContains(t, w.Body.String(), "password")
}

type fakeQueue struct {
	enqueued []backlite.Task
	status   backlite.TaskStatus
}

func (q *fakeQueue) Enqueue(ctx context.Context, task backlite.Task) (string, error) {
	q.enqueued = append(q.enqueued, task)
	return "task-42", nil
}

func (q *fakeQueue) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return q.status, nil
}

func TestSweepRunsInlineWithoutQueue(t *testing.T) {
	env := setupAPI(t)
	orphan := filepath.Join(env.storageDir, "orphan.png")
	require.NoError(t, os.WriteFile(orphan, testPNG(t), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(orphan, old, old))

	w := env.do(httptest.NewRequest("POST", "/api/admin/images/sweep", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, storedBlobs(t, env.storageDir))
}

func TestSweepEnqueuesWithQueue(t *testing.T) {
	queue := &fakeQueue{status: backlite.TaskStatusSuccess}
	env := setupAPI(t, func(cfg *RouterConfig) { cfg.TaskQueue = queue })

	w := env.do(httptest.NewRequest("POST", "/api/admin/images/sweep", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "task-42")
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "sweep_orphan_images", queue.enqueued[0].Config().Name)

	w = env.do(httptest.NewRequest("GET", "/api/tasks/task-42", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"task-42","status":"success"}`, w.Body.String())

	queue.status = backlite.TaskStatusNotFound
	w = env.do(httptest.NewRequest("GET", "/api/tasks/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := setupAPI(t, func(cfg *RouterConfig) {
		cfg.CORSAllowedOrigins = []string{"https://app.example.test"}
	})

	req := httptest.NewRequest("OPTIONS", "/api/books", nil)
	req.Header.Set("Origin", "https://app.example.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := env.do(req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "https://app.example.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/books", nil)
	req.Header.Set("Origin", "https://app.example.test")
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.test", w.Header().Get("Access-Control-Allow-Origin"))
}
