package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/access"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/cache"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/config"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/plan"
)

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	tier := tierFrom(r.Context())
	key := cache.Key("records:list", tier)
	payload, err := s.cache.Read(r.Context(), key, config.TTL(s.cfg.Cache.ListTTLSeconds),
		func(ctx context.Context) ([]byte, error) {
			recs, err := s.store.ListRecent(ctx, tier.ListLimit())
			if err != nil {
				return nil, err
			}
			return marshalViews(recs, tier)
		})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeRaw(s.logger, w, http.StatusOK, payload)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	tier := tierFrom(r.Context())
	id := chi.URLParam(r, "id")
	key := cache.Key("records:detail", tier, id)
	payload, err := s.cache.Read(r.Context(), key, config.TTL(s.cfg.Cache.DetailTTLSeconds),
		func(ctx context.Context) ([]byte, error) {
			rec, err := s.store.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]any{"record": access.Project(rec, tier)})
		})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeRaw(s.logger, w, http.StatusOK, payload)
}

func (s *Server) searchRecords(w http.ResponseWriter, r *http.Request) {
	tier := tierFrom(r.Context())
	term := strings.TrimSpace(chi.URLParam(r, "term"))
	if term == "" {
		writeError(s.logger, w, http.StatusBadRequest, "bad_request", "search term must not be empty")
		return
	}
	// The title match is case-insensitive, so fold the term for the key.
	key := cache.Key("records:search", tier, strings.ToLower(term))
	payload, err := s.cache.Read(r.Context(), key, config.TTL(s.cfg.Cache.SearchTTLSeconds),
		func(ctx context.Context) ([]byte, error) {
			recs, err := s.store.FindByText(ctx, term, tier.ListLimit())
			if err != nil {
				return nil, err
			}
			return marshalViews(recs, tier)
		})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeRaw(s.logger, w, http.StatusOK, payload)
}

func (s *Server) recordsByPriceRange(w http.ResponseWriter, r *http.Request) {
	tier := tierFrom(r.Context())
	min, err := parsePrice(r.URL.Query().Get("min"))
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "bad_request", "min must be a non-negative integer")
		return
	}
	max, err := parsePrice(r.URL.Query().Get("max"))
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "bad_request", "max must be a non-negative integer")
		return
	}
	// Reject an inverted range before touching the store or the cache.
	if min > max {
		writeError(s.logger, w, http.StatusBadRequest, "bad_request", "min must not exceed max")
		return
	}
	key := cache.Key("records:price-range", tier,
		strconv.FormatInt(min, 10), strconv.FormatInt(max, 10))
	payload, err := s.cache.Read(r.Context(), key, config.TTL(s.cfg.Cache.PriceTTLSeconds),
		func(ctx context.Context) ([]byte, error) {
			recs, err := s.store.FindByPriceRange(ctx, min, max, tier.ListLimit())
			if err != nil {
				return nil, err
			}
			return marshalViews(recs, tier)
		})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeRaw(s.logger, w, http.StatusOK, payload)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	tier := tierFrom(r.Context())
	key := cache.Key("records:categories", tier)
	payload, err := s.cache.Read(r.Context(), key, config.TTL(s.cfg.Cache.CategoriesTTLSeconds),
		func(ctx context.Context) ([]byte, error) {
			categories, err := s.store.ListDistinctCategories(ctx)
			if err != nil {
				return nil, err
			}
			if categories == nil {
				categories = []string{}
			}
			return json.Marshal(map[string]any{
				"categories": categories,
				"count":      len(categories),
			})
		})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeRaw(s.logger, w, http.StatusOK, payload)
}

type insertRequest struct {
	NaturalKey   string `json:"natural_key"`
	Title        string `json:"title"`
	DisplayPrice string `json:"display_price"`
	ImageURL     string `json:"image_url"`
	Category     string `json:"category"`
	SourcePage   string `json:"source_page"`
}

func (s *Server) insertRecord(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	rec, err := s.store.Upsert(r.Context(), catalog.Draft{
		NaturalKey:   req.NaturalKey,
		Title:        req.Title,
		DisplayPrice: req.DisplayPrice,
		ImageURL:     req.ImageURL,
		Category:     req.Category,
		SourcePage:   req.SourcePage,
	})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	// The operator surface returns the full record, not a tier projection.
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"record": rec})
}

func marshalViews(recs []catalog.Record, tier plan.Tier) ([]byte, error) {
	views := access.ProjectAll(recs, tier)
	if views == nil {
		views = []access.View{}
	}
	return json.Marshal(map[string]any{
		"records": views,
		"count":   len(views),
	})
}

// parsePrice accepts a plain non-negative integer amount.
func parsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty price bound")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid price bound %q", raw)
	}
	return n, nil
}

// writeErrorFor maps domain errors onto HTTP statuses.
func (s *Server) writeErrorFor(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrMissingCredential):
		writeError(s.logger, w, http.StatusUnauthorized, "unauthorized", "API key required")
	case errors.Is(err, catalog.ErrUnknownCredential):
		writeError(s.logger, w, http.StatusForbidden, "forbidden", "unrecognized API key")
	case catalog.IsQuotaExceeded(err):
		writeError(s.logger, w, http.StatusTooManyRequests, "quota_exceeded", "monthly request ceiling reached")
	case catalog.IsValidationError(err):
		writeError(s.logger, w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(s.logger, w, http.StatusNotFound, "not_found", "record not found")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

// writeRaw emits an already-serialized JSON payload, typically one that came
// out of the cache.
func writeRaw(logger *zap.Logger, w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logger.Error("write response failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, kind, message string) {
	writeJSON(logger, w, status, map[string]any{
		"error": map[string]string{"kind": kind, "message": message},
	})
}
