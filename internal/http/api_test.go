package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/attachments"
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	dbaudit "github.com/mrlokans/librarian/internal/database/audit"
	imagesrepo "github.com/mrlokans/librarian/internal/database/images"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library/librarytest"
	"github.com/mrlokans/librarian/internal/storage"
)

type apiEnv struct {
	f          *librarytest.Fixture
	router     *gin.Engine
	images     *attachments.Manager
	audit      *audit.Service
	storageDir string
	reportDir  string
}

type envOption func(*RouterConfig)

func setupAPI(t *testing.T, opts ...envOption) *apiEnv {
	t.Helper()

	f := librarytest.New(t)
	storageDir := filepath.Join(t.TempDir(), "storage")
	blobs, err := storage.NewFileSystem(storageDir)
	require.NoError(t, err)

	imageRows := imagesrepo.NewRepository(f.DB.DB)
	manager := attachments.NewManager(imageRows, blobs, attachments.Config{})
	auditSvc := audit.NewService(dbaudit.NewRepository(f.DB.DB))
	t.Cleanup(auditSvc.Wait)

	reportDir := filepath.Join(t.TempDir(), "reports")
	cfg := RouterConfig{
		Catalog:     f.Catalog,
		Database:    f.DB,
		Audit:       auditSvc,
		Reports:     audit.NewReports(reportDir),
		Attachments: manager,
		Sweeper:     attachments.NewSweeper(imageRows, blobs, 0),
		StorageDir:  storageDir,
		Version:     "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &apiEnv{
		f:          f,
		router:     NewRouter(cfg),
		images:     manager,
		audit:      auditSvc,
		storageDir: storageDir,
		reportDir:  reportDir,
	}
}

func (e *apiEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) doJSON(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// doMultipart sends fields plus optional files keyed by form field name.
func (e *apiEnv) doMultipart(method, path string, fields map[string]string, files map[string]fileUpload) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for field, file := range files {
		fw, _ := mw.CreateFormFile(field, file.name)
		_, _ = fw.Write(file.data)
	}
	_ = mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

type fileUpload struct {
	name string
	data []byte
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 120, B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type bookEnvelope struct {
	Message  string         `json:"message"`
	Redirect string         `json:"redirect"`
	Data     entities.Book  `json:"data"`
	Error    string         `json:"error"`
	Code     string         `json:"code"`
	Details  map[string]any `json:"details"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func idPath(resource string, id uint) string {
	return "/api/" + resource + "/" + strconv.FormatUint(uint64(id), 10)
}

func storedBlobs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestBooksCRUD(t *testing.T) {
	env := setupAPI(t)

	w := env.doJSON("POST", "/api/books", env.f.BookInput("Dune", "9780441013593"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[bookEnvelope](t, w)
	assert.Equal(t, "Dune was stored in library", created.Message)
	require.NotZero(t, created.Data.ID)
	require.NotNil(t, created.Data.Author)
	assert.Equal(t, "Frank Herbert", created.Data.Author.Name)

	w = env.do(httptest.NewRequest("GET", idPath("books", created.Data.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dune", decode[entities.Book](t, w).Title)

	w = env.doJSON("PUT", idPath("books", created.Data.ID), map[string]string{"title": "Dune Messiah"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[bookEnvelope](t, w)
	assert.Equal(t, "Dune Messiah was updated", updated.Message)
	assert.Equal(t, "9780441013593", updated.Data.ISBN)

	w = env.do(httptest.NewRequest("DELETE", idPath("books", created.Data.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	deleted := decode[bookEnvelope](t, w)
	assert.Equal(t, "/api/books", deleted.Redirect)
	assert.Equal(t, int64(0), env.f.CountBooks(t))
}

func TestDeleteMissingRecord(t *testing.T) {
	env := setupAPI(t)
	_, err := env.f.Catalog.Books.Records.Create(t.Context(), env.f.BookInput("Dune", "1"))
	require.NoError(t, err)

	w := env.do(httptest.NewRequest("DELETE", "/api/books/9999", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[bookEnvelope](t, w).Code)
	assert.Equal(t, int64(1), env.f.CountBooks(t))
}

func TestStoreValidationError(t *testing.T) {
	env := setupAPI(t)
	input := env.f.BookInput("Dune", "")
	delete(input, "isbn")

	w := env.doJSON("POST", "/api/books", input)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[bookEnvelope](t, w)
	assert.Equal(t, "VALIDATION", resp.Code)
	assert.Contains(t, resp.Details, "isbn")
	assert.Equal(t, int64(0), env.f.CountBooks(t))
}

func TestStoreDropsUnknownFields(t *testing.T) {
	env := setupAPI(t)
	input := env.f.BookInput("Dune", "1")
	input["id"] = "777"
	input["created_at"] = "1999-01-01"

	w := env.doJSON("POST", "/api/books", input)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	book := decode[bookEnvelope](t, w).Data
	assert.NotEqual(t, uint(777), book.ID)
	assert.True(t, book.CreatedAt.After(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestListingSearchAndPagination(t *testing.T) {
	env := setupAPI(t)
	ctx := t.Context()
	for i := 1; i <= 12; i++ {
		_, err := env.f.Catalog.Books.Records.Create(ctx, env.f.BookInput(fmt.Sprintf("Match %02d", i), strconv.Itoa(i)))
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := env.f.Catalog.Books.Records.Create(ctx, env.f.BookInput(fmt.Sprintf("Other %d", i), "x"))
		require.NoError(t, err)
	}

	w := env.do(httptest.NewRequest("GET", "/api/books?search_query=Match&page=2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[struct {
		Data       []entities.Book `json:"data"`
		Total      int64           `json:"total"`
		Page       int             `json:"page"`
		TotalPages int             `json:"total_pages"`
		Search     string          `json:"search_query"`
		Next       string          `json:"next"`
		Prev       string          `json:"prev"`
	}](t, w)

	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "Match", page.Search)
	require.Len(t, page.Data, 5)
	// Newest first: page 2 holds the 6th to 10th newest matches.
	assert.Equal(t, "Match 07", page.Data[0].Title)
	assert.Equal(t, "Match 03", page.Data[4].Title)
	assert.Equal(t, "/api/books?page=3&search_query=Match", page.Next)
	assert.Equal(t, "/api/books?page=1&search_query=Match", page.Prev)

	w = env.do(httptest.NewRequest("GET", "/api/books?search_query=nothing-matches", nil))
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[struct {
		Data  []entities.Book `json:"data"`
		Total int64           `json:"total"`
	}](t, w)
	assert.Empty(t, empty.Data)
	assert.Zero(t, empty.Total)
}

func TestStoreBookWithImage(t *testing.T) {
	env := setupAPI(t)

	w := env.doMultipart("POST", "/api/books", env.f.BookInput("Dune", "1"), map[string]fileUpload{
		ImageField: {name: "cover.png", data: testPNG(t)},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	book := decode[bookEnvelope](t, w).Data
	require.NotNil(t, book.Image)
	assert.Contains(t, book.Image.URL, "/storage/")
	assert.Contains(t, book.Image.Filename, "cover.png")

	first := book.Image.Filename
	assert.Equal(t, []string{first}, storedBlobs(t, env.storageDir))

	w = env.do(httptest.NewRequest("GET", "/storage/"+first, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Replacing keeps one row and removes the first blob.
	w = env.doMultipart("PUT", idPath("books", book.ID), nil, map[string]fileUpload{
		ImageField: {name: "second.png", data: testPNG(t)},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replaced := decode[bookEnvelope](t, w).Data
	require.NotNil(t, replaced.Image)
	assert.NotEqual(t, first, replaced.Image.Filename)
	assert.Equal(t, []string{replaced.Image.Filename}, storedBlobs(t, env.storageDir))

	var rows int64
	require.NoError(t, env.f.DB.DB.Model(&entities.Image{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	// Deleting the book removes its image.
	w = env.do(httptest.NewRequest("DELETE", idPath("books", book.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, storedBlobs(t, env.storageDir))
	require.NoError(t, env.f.DB.DB.Model(&entities.Image{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestStoreRejectsInvalidImage(t *testing.T) {
	env := setupAPI(t)

	w := env.doMultipart("POST", "/api/books", env.f.BookInput("Dune", "1"), map[string]fileUpload{
		ImageField: {name: "cover.png", data: []byte("not an image")},
	})

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "VALIDATION", decode[bookEnvelope](t, w).Code)
	assert.Equal(t, int64(0), env.f.CountBooks(t), "book is not kept without its image")
	assert.Empty(t, storedBlobs(t, env.storageDir))
}

func TestImageNotSupportedForCategories(t *testing.T) {
	env := setupAPI(t)

	w := env.doMultipart("POST", "/api/categories", map[string]string{"name": "Poetry"}, map[string]fileUpload{
		ImageField: {name: "x.png", data: testPNG(t)},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[bookEnvelope](t, w)
	assert.Contains(t, resp.Details, ImageField)
}

func TestUnknownResourceRoute(t *testing.T) {
	env := setupAPI(t)
	w := env.do(httptest.NewRequest("GET", "/api/dragons", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlashMessageAfterStore(t *testing.T) {
	var sessions *auth.SessionManager
	env := setupAPI(t, func(cfg *RouterConfig) {
		sqlDB, err := cfg.Database.DB.DB()
		require.NoError(t, err)
		sessions, err = auth.NewSessionManager(sqlDB, auth.SessionConfig{})
		require.NoError(t, err)
		cfg.Sessions = sessions
	})

	w := env.doJSON("POST", "/api/categories", map[string]string{"name": "Poetry"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	flash := func() string {
		req := httptest.NewRequest("GET", "/api/flash", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		resp := env.do(req)
		require.Equal(t, http.StatusOK, resp.Code)
		return decode[struct {
			Message string `json:"message"`
		}](t, resp).Message
	}

	assert.Equal(t, "Poetry was stored in library", flash())
	assert.Empty(t, flash(), "flash is shown once")
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	env := setupAPI(t)

	w := env.doJSON("POST", "/api/categories", map[string]string{"name": "Poetry"})
	require.Equal(t, http.StatusCreated, w.Code)
	env.audit.Wait()

	w = env.do(httptest.NewRequest("GET", "/api/audit?type=create", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Data  []entities.AuditEvent `json:"data"`
		Total int64                 `json:"total"`
	}](t, w)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "Created category: Poetry", resp.Data[0].Description)
}
