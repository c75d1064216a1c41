package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldb/internal"
	"ldb/internal/search"
)

type stubSearcher struct {
	lastCriteria internal.SearchCriteria
	lastLimit    int
	result       internal.SearchResult
	err          error
}

func (s *stubSearcher) StructuredSearch(_ context.Context, criteria internal.SearchCriteria, limit int) (internal.SearchResult, error) {
	s.lastCriteria = criteria
	s.lastLimit = limit
	return s.result, s.err
}

func (s *stubSearcher) StructuredSearchV2(_ context.Context, criteria internal.SearchCriteria, limit int) (internal.SearchResult, error) {
	return s.StructuredSearch(nil, criteria, limit)
}

type stubViewer struct {
	card internal.ProductCard
	err  error
}

func (v *stubViewer) Card(_ context.Context, _ string) (internal.ProductCard, error) {
	return v.card, v.err
}

func newTestServer(searcher *stubSearcher, viewer *stubViewer) http.Handler {
	if viewer == nil {
		viewer = &stubViewer{}
	}
	return NewServer(searcher, viewer, zerolog.Nop()).Router()
}

func TestStructuredSearchEndpoint(t *testing.T) {
	searcher := &stubSearcher{result: internal.SearchResult{Articles: []string{"01-0023"}}}
	srv := newTestServer(searcher, nil)

	body := `{"include":{"articles":["01-0023"],"keys":[],"characteristics":{}}}`
	req := httptest.NewRequest(http.MethodPost, "/search/structured?limit=50", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, searcher.lastLimit)
	assert.Equal(t, []string{"01-0023"}, searcher.lastCriteria.Include.Articles)

	var result internal.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"01-0023"}, result.Articles)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSearchLimitFromBody(t *testing.T) {
	searcher := &stubSearcher{}
	srv := newTestServer(searcher, nil)

	body := `{"include":{"articles":[],"keys":[],"characteristics":{}},"limit":25}`
	req := httptest.NewRequest(http.MethodPost, "/search/structured", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, searcher.lastLimit)
}

func TestSearchQueryLimitOverridesBody(t *testing.T) {
	searcher := &stubSearcher{}
	srv := newTestServer(searcher, nil)

	body := `{"include":{"articles":[],"keys":[],"characteristics":{}},"limit":25}`
	req := httptest.NewRequest(http.MethodPost, "/search/structured?limit=5", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, searcher.lastLimit)
}

func TestSearchBadBody(t *testing.T) {
	srv := newTestServer(&stubSearcher{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/search/structured_v2", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchValidationErrorIs400(t *testing.T) {
	searcher := &stubSearcher{err: search.ErrValidation}
	srv := newTestServer(searcher, nil)

	req := httptest.NewRequest(http.MethodPost, "/search/structured", strings.NewReader(`{"include":{}}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchStoreErrorIs500(t *testing.T) {
	searcher := &stubSearcher{err: assert.AnError}
	srv := newTestServer(searcher, nil)

	req := httptest.NewRequest(http.MethodPost, "/search/structured", strings.NewReader(`{"include":{}}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchBadLimit(t *testing.T) {
	srv := newTestServer(&stubSearcher{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/search/structured?limit=abc", strings.NewReader(`{"include":{}}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductEndpoint(t *testing.T) {
	viewer := &stubViewer{card: internal.ProductCard{Name: "Кабель ВВГнг 3х2.5"}}
	srv := newTestServer(&stubSearcher{}, viewer)

	req := httptest.NewRequest(http.MethodGet, "/products/VVG-3x2.5", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var card internal.ProductCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "Кабель ВВГнг 3х2.5", card.Name)
}

func TestRootEndpoint(t *testing.T) {
	srv := newTestServer(&stubSearcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Contains(t, info, "endpoints")
}
