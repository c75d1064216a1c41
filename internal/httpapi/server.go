package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ldb/internal"
	"ldb/internal/search"
)

// Searcher runs the two structured search variants. *search.Engine
// satisfies it.
type Searcher interface {
	StructuredSearch(ctx context.Context, criteria internal.SearchCriteria, limit int) (internal.SearchResult, error)
	StructuredSearchV2(ctx context.Context, criteria internal.SearchCriteria, limit int) (internal.SearchResult, error)
}

// ProductViewer assembles the product card shown for one article.
type ProductViewer interface {
	Card(ctx context.Context, article string) (internal.ProductCard, error)
}

type Server struct {
	searcher Searcher
	products ProductViewer
	logger   zerolog.Logger
}

func NewServer(searcher Searcher, products ProductViewer, logger zerolog.Logger) *Server {
	return &Server{searcher: searcher, products: products, logger: logger}
}

// Router builds the HTTP surface. Searches are POSTs carrying the criteria
// document; limit comes from the optional ?limit= query parameter.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/", s.handleRoot)
	r.Post("/search/structured", s.handleSearch(s.searcher.StructuredSearch))
	r.Post("/search/structured_v2", s.handleSearch(s.searcher.StructuredSearchV2))
	r.Get("/products/{article}", s.handleProduct)

	return r
}

// requestLogger tags every request with an id and logs one line on
// completion.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "LDB - Product Search API",
		"version": "2.0",
		"endpoints": map[string]string{
			"structured_search":    "/search/structured",
			"structured_search_v2": "/search/structured_v2",
			"product_card":         "/products/{article}",
		},
	})
}

type searchFunc func(ctx context.Context, criteria internal.SearchCriteria, limit int) (internal.SearchResult, error)

// searchRequest is the criteria envelope. Limit may also arrive as the
// ?limit= query parameter, which takes precedence over the body field.
type searchRequest struct {
	internal.SearchCriteria
	Limit *int `json:"limit"`
}

func (s *Server) handleSearch(run searchFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		limit, err := limitParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit", err.Error())
			return
		}
		if limit == 0 && req.Limit != nil {
			limit = *req.Limit
		}

		result, err := run(r.Context(), req.SearchCriteria, limit)
		if err != nil {
			if errors.Is(err, search.ErrValidation) {
				writeError(w, http.StatusBadRequest, "invalid search criteria", err.Error())
				return
			}
			s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("search failed")
			writeError(w, http.StatusInternalServerError, "search failed", "")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	article := chi.URLParam(r, "article")

	card, err := s.products.Card(r.Context(), article)
	if err != nil {
		s.logger.Error().Err(err).Str("article", article).Msg("product lookup failed")
		writeError(w, http.StatusInternalServerError, "product lookup failed", "")
		return
	}

	// An unknown article is reported inside the card, same contract as the
	// search side.
	writeJSON(w, http.StatusOK, card)
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	var limit int
	if err := json.Unmarshal([]byte(raw), &limit); err != nil {
		return 0, errors.New("limit must be an integer")
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	body := map[string]string{"error": message}
	if detail != "" {
		body["detail"] = detail
	}
	writeJSON(w, status, body)
}
