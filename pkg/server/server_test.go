package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unowned-ai/daybook/pkg/db"
	"github.com/unowned-ai/daybook/pkg/entries"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupLoader(t *testing.T) *entries.Loader {
	t.Helper()
	conn, err := db.OpenDBConnection(":memory:", false, "")
	require.NoError(t, err)
	require.NoError(t, db.UpgradeDB(context.Background(), conn, ":memory:", db.TargetSchemaVersion, nil))
	store := entries.NewSQLiteStore(conn)
	t.Cleanup(func() { store.Close() })
	return entries.NewLoader(store, entries.WithLogger(discardLogger()))
}

func setupServer(t *testing.T) (*httptest.Server, *entries.Loader) {
	t.Helper()
	loader := setupLoader(t)
	srv := httptest.NewServer(Handler(loader, discardLogger(), []string{"http://localhost:3000"}))
	t.Cleanup(srv.Close)
	return srv, loader
}

func seed(t *testing.T, loader *entries.Loader) entries.SerializedEntry {
	t.Helper()
	e, err := loader.Create(context.Background(), entries.EntryInput{
		Title: "Lake day",
		Date:  "2023-01-05T00:00:00Z",
		Text:  "Cold <b>water</b>",
		Tags:  []string{"travel", "family"},
	})
	require.NoError(t, err)
	return e
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Data
}

func decodeProblem(t *testing.T, resp *http.Response) ProblemDetails {
	t.Helper()
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	var p ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func TestGetEntry(t *testing.T) {
	srv, loader := setupServer(t)
	e := seed(t, loader)

	resp := do(t, http.MethodGet, srv.URL+"/api/entries/"+e.UUID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	data := decodeData(t, resp)
	assert.Equal(t, e.UUID, data["uuid"])
	assert.Equal(t, "2023-01-05T00:00:00.000Z", data["date"])
	assert.Equal(t, []any{"travel", "family"}, data["tags"])
	assert.NotContains(t, data, "id")
	assert.NotContains(t, data, "authorId")
}

func TestGetEntry_NotFound(t *testing.T) {
	srv, _ := setupServer(t)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		resp := do(t, http.MethodGet, srv.URL+"/api/entries/"+id, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		p := decodeProblem(t, resp)
		assert.Equal(t, "entry not found", p.Detail)
		assert.Equal(t, "/api/entries/"+id, p.Instance)
	}
}

func TestUpdateEntry(t *testing.T) {
	srv, loader := setupServer(t)
	e := seed(t, loader)

	body := `{"uuid":"` + e.UUID + `","title":"Renamed","date":"2023-01-06T08:00:00Z","text":"Warm","tags":["summer"]}`
	resp := do(t, http.MethodPut, srv.URL+"/api/entries/"+e.UUID, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "Renamed", data["title"])
	assert.Equal(t, []any{"summer"}, data["tags"])

	reloaded, err := loader.Load(context.Background(), e.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Warm", reloaded.Text)
}

func TestUpdateEntry_Errors(t *testing.T) {
	srv, loader := setupServer(t)
	e := seed(t, loader)
	url := srv.URL + "/api/entries/" + e.UUID

	tests := []struct {
		name   string
		url    string
		body   string
		status int
	}{
		{"malformed json", url, `{"title":`, http.StatusBadRequest},
		{"unknown field", url, `{"date":"2023-01-05T00:00:00Z","id":7}`, http.StatusBadRequest},
		{"uuid mismatch", url, `{"uuid":"` + uuid.NewString() + `","date":"2023-01-05T00:00:00Z"}`, http.StatusUnprocessableEntity},
		{"invalid date", url, `{"date":"tomorrow"}`, http.StatusUnprocessableEntity},
		{"unknown entry", srv.URL + "/api/entries/" + uuid.NewString(), `{"date":"2023-01-05T00:00:00Z"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPut, tt.url, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			p := decodeProblem(t, resp)
			assert.Equal(t, tt.status, p.Status)
		})
	}
}

func TestWriteBodiesAreCapped(t *testing.T) {
	srv, loader := setupServer(t)
	e := seed(t, loader)
	body := `{"date":"2023-01-05T00:00:00Z","text":"` + strings.Repeat("x", MaxBodyBytes) + `"}`

	for _, req := range []struct{ method, url string }{
		{http.MethodPut, srv.URL + "/api/entries/" + e.UUID},
		{http.MethodPost, srv.URL + "/api/entries"},
	} {
		resp := do(t, req.method, req.url, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, req.method)
		p := decodeProblem(t, resp)
		assert.Equal(t, http.StatusRequestEntityTooLarge, p.Status)
	}

	got, err := loader.Load(context.Background(), e.UUID)
	require.NoError(t, err)
	assert.Equal(t, e.Text, got.Text)
}

func TestUpdateEntry_ValidationListsFields(t *testing.T) {
	srv, loader := setupServer(t)
	e := seed(t, loader)

	resp := do(t, http.MethodPut, srv.URL+"/api/entries/"+e.UUID, `{"title":"`+strings.Repeat("x", 300)+`"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	p := decodeProblem(t, resp)
	require.Len(t, p.Errors, 2)
	assert.Equal(t, "title", p.Errors[0].Field)
	assert.Equal(t, "date", p.Errors[1].Field)
}

func TestCreateEntry(t *testing.T) {
	srv, _ := setupServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/entries", `{"title":"New","date":"2024-05-01T00:00:00Z","text":"","tags":[]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "/api/entries/"+data["uuid"].(string), resp.Header.Get("Location"))

	id := uuid.NewString()
	body := `{"uuid":"` + id + `","date":"2024-05-01T00:00:00Z"}`
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/entries", body).StatusCode)
	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, srv.URL+"/api/entries", body).StatusCode)
}

func TestDeleteEntry_NotYetAvailable(t *testing.T) {
	srv, loader := setupServer(t)
	e := seed(t, loader)

	resp := do(t, http.MethodDelete, srv.URL+"/api/entries/"+e.UUID, "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/entries/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListTags(t *testing.T) {
	srv, loader := setupServer(t)
	seed(t, loader)

	resp := do(t, http.MethodGet, srv.URL+"/api/tags", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"family", "travel"}, body.Data)
}

func TestEntryPage(t *testing.T) {
	srv, loader := setupServer(t)
	e := seed(t, loader)

	resp := do(t, http.MethodGet, srv.URL+"/entries/"+e.UUID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(raw)
	assert.Contains(t, page, "Lake day")
	assert.Contains(t, page, "Thursday, January 5, 2023")
	assert.Contains(t, page, "Cold &lt;b&gt;water&lt;/b&gt;")
	assert.Contains(t, page, `<li class="tag">travel</li>`)
	assert.Contains(t, page, "Coming soon!")
}

func TestEntryPage_NotFound(t *testing.T) {
	srv, _ := setupServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/entries/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "could not be found")
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type brokenService struct{ EntryService }

func (brokenService) Load(context.Context, string) (entries.SerializedEntry, error) {
	return entries.SerializedEntry{}, errors.New("disk on fire")
}

func (brokenService) Ping(context.Context) error { return errors.New("disk on fire") }

func TestStoreFailuresAreInternalErrors(t *testing.T) {
	srv := httptest.NewServer(Handler(brokenService{}, discardLogger(), []string{"*"}))
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/entries/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	p := decodeProblem(t, resp)
	assert.NotContains(t, p.Detail, "disk on fire")

	assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodGet, srv.URL+"/health", "").StatusCode)
	assert.Equal(t, http.StatusInternalServerError, do(t, http.MethodGet, srv.URL+"/entries/"+uuid.NewString(), "").StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/entries/x", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
}

func TestRecovery(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		RequestID, Recovery(discardLogger()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc-123", seen)
}
