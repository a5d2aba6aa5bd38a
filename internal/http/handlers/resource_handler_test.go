package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/buger/jsonparser"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/ruser/internal/domain"
	"github.com/tbourn/ruser/internal/http/middleware"
	"github.com/tbourn/ruser/internal/services"
	"github.com/tbourn/ruser/internal/validation"
)

// fakePeople is an in-memory ResourceService for people.
type fakePeople struct {
	items     []domain.Person
	statsErr  error
	listErr   error
	createErr error
	replay    bool

	gotKey      string
	gotPage     int
	gotPageSize int
}

func (f *fakePeople) List(context.Context) ([]domain.Person, error) {
	return f.items, f.listErr
}

func (f *fakePeople) ListPage(_ context.Context, page, pageSize int) ([]domain.Person, int64, error) {
	f.gotPage, f.gotPageSize = page, pageSize
	return f.items, int64(len(f.items)), f.listErr
}

func (f *fakePeople) Get(_ context.Context, id int64) (*domain.Person, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakePeople) Create(_ context.Context, key string, p domain.CreatePerson) (*domain.Person, bool, error) {
	f.gotKey = key
	if f.createErr != nil {
		return nil, false, f.createErr
	}
	e := domain.People.Build(p)
	e.ID = int64(len(f.items) + 1)
	f.items = append(f.items, e)
	return &e, f.replay, nil
}

func (f *fakePeople) Stats(context.Context) (int64, int64, error) {
	if f.statsErr != nil {
		return 0, 0, f.statsErr
	}
	var maxID int64
	for _, p := range f.items {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return int64(len(f.items)), maxID, nil
}

func newPeopleRouter(svc *fakePeople) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	h := NewResource[domain.Person, domain.CreatePerson]("people", svc)
	r.GET("/people", h.List)
	r.GET("/people/:id", h.Get)
	r.POST("/people", h.Create)
	return r
}

func serve(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validPerson = `{"name":"Ana","city":"Lima","occupation":"Eng","age":30,"education":"BSc"}`

func TestResource_List_EmptyIsArray(t *testing.T) {
	r := newPeopleRouter(&fakePeople{items: []domain.Person{}})
	w := serve(r, http.MethodGet, "/people", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	assert.Equal(t, `W/"people:0:0"`, w.Header().Get("ETag"))
}

func TestResource_List_StatsFailureStillLists(t *testing.T) {
	svc := &fakePeople{items: []domain.Person{{ID: 1, Name: "Ana"}}, statsErr: errors.New("locked")}
	w := serve(newPeopleRouter(svc), http.MethodGet, "/people", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
	name, _ := jsonparser.GetString(w.Body.Bytes(), "data", "[0]", "name")
	assert.Equal(t, "Ana", name)
}

func TestResource_List_StorageErrorIs500(t *testing.T) {
	svc := &fakePeople{listErr: &services.StorageError{Kind: "people", Op: "list", Err: errors.New("disk I/O error")}}
	w := serve(newPeopleRouter(svc), http.MethodGet, "/people", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	code, _ := jsonparser.GetString(w.Body.Bytes(), "code")
	msg, _ := jsonparser.GetString(w.Body.Bytes(), "message")
	assert.Equal(t, ErrCodeInternal, code)
	assert.Equal(t, "internal error", msg)
	assert.NotContains(t, w.Body.String(), "disk I/O")
}

func TestResource_List_PaginationClamped(t *testing.T) {
	cases := []struct {
		query      string
		page, size int
	}{
		{"?page=0&page_size=0", 1, 1},
		{"?page=-3", 1, 20},
		{"?page_size=1000", 1, 100},
		{"?page=x&page_size=y", 1, 20},
		{"?page=3&page_size=7", 3, 7},
	}
	for _, tc := range cases {
		svc := &fakePeople{}
		w := serve(newPeopleRouter(svc), http.MethodGet, "/people"+tc.query, "")
		require.Equal(t, http.StatusOK, w.Code, tc.query)
		assert.Equal(t, tc.page, svc.gotPage, tc.query)
		assert.Equal(t, tc.size, svc.gotPageSize, tc.query)
		_, dt, _, _ := jsonparser.Get(w.Body.Bytes(), "pagination")
		assert.Equal(t, jsonparser.Object, dt, tc.query)
	}
}

func TestResource_Get(t *testing.T) {
	svc := &fakePeople{items: []domain.Person{{ID: 4, Name: "Ana", City: "Lima", Occupation: "Eng", Age: 30, Education: "BSc"}}}
	r := newPeopleRouter(svc)

	w := serve(r, http.MethodGet, "/people/4", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"id":4,"name":"Ana","city":"Lima","occupation":"Eng","age":30,"education":"BSc"}}`, w.Body.String())

	w = serve(r, http.MethodGet, "/people/5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/people/four", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	msg, _ := jsonparser.GetString(w.Body.Bytes(), "message")
	assert.Equal(t, `id must be a positive integer, got "four"`, msg)

	for _, raw := range []string{"+4", "-4", "0", "00", " 4"} {
		w = serve(r, http.MethodGet, "/people/"+url.PathEscape(raw), "")
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
	w = serve(r, http.MethodGet, "/people/004", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseID(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"9223372036854775807", 9223372036854775807, true},
		{"", 0, false},
		{"0", 0, false},
		{"+5", 0, false},
		{"-3", 0, false},
		{"1.5", 0, false},
		{"9223372036854775808", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseID(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestResource_Create(t *testing.T) {
	svc := &fakePeople{}
	r := newPeopleRouter(svc)

	w := serve(r, http.MethodPost, "/people", validPerson, middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "k-1", svc.gotKey)
	assert.Empty(t, w.Header().Get(HeaderReplayed))
	id, _ := jsonparser.GetInt(w.Body.Bytes(), "data", "id")
	assert.EqualValues(t, 1, id)

	// Unknown fields are ignored.
	w = serve(r, http.MethodPost, "/people", `{"name":"Bo","city":"Oslo","occupation":"Dev","age":5,"education":"BA","id":99,"extra":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ = jsonparser.GetInt(w.Body.Bytes(), "data", "id")
	assert.EqualValues(t, 2, id)
	assert.Empty(t, svc.gotKey)
}

func TestResource_Create_Replayed(t *testing.T) {
	svc := &fakePeople{replay: true}
	w := serve(newPeopleRouter(svc), http.MethodPost, "/people", validPerson, middleware.HeaderIdempotencyKey, "k-2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(HeaderReplayed))
}

func TestResource_Create_ErrorMapping(t *testing.T) {
	verr := &validation.Error{Kind: "people", Fields: []validation.FieldError{
		{Field: "age", Rule: "min", Param: "1", Message: "age must be at least 1"},
	}}
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", verr, http.StatusUnprocessableEntity, ErrCodeValidation},
		{"conflict", services.ErrIdempotencyConflict, http.StatusConflict, ErrCodeConflict},
		{"storage", &services.StorageError{Kind: "people", Op: "create", Err: errors.New("readonly")}, http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(newPeopleRouter(&fakePeople{createErr: tc.err}), http.MethodPost, "/people", validPerson)
			require.Equal(t, tc.status, w.Code)
			code, _ := jsonparser.GetString(w.Body.Bytes(), "code")
			assert.Equal(t, tc.code, code)
		})
	}

	// Validation details carry every violated field.
	w := serve(newPeopleRouter(&fakePeople{createErr: verr}), http.MethodPost, "/people", validPerson)
	field, _ := jsonparser.GetString(w.Body.Bytes(), "details", "[0]", "field")
	rule, _ := jsonparser.GetString(w.Body.Bytes(), "details", "[0]", "rule")
	msg, _ := jsonparser.GetString(w.Body.Bytes(), "message")
	assert.Equal(t, "age", field)
	assert.Equal(t, "min", rule)
	assert.Equal(t, "invalid people: age must be at least 1", msg)
}
