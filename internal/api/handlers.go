package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/competitor-watch/internal/acquirer"
	"github.com/JakeFAU/competitor-watch/internal/watch"
)

type entityRequest struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Category string   `json:"category"`
	Labels   []string `json:"labels"`
}

func (req entityRequest) toEntity() (watch.Entity, error) {
	name := strings.TrimSpace(req.Name)
	url := strings.TrimSpace(req.URL)
	if name == "" {
		return watch.Entity{}, errors.New("name is required")
	}
	if url == "" {
		return watch.Entity{}, errors.New("url is required")
	}
	if err := acquirer.ValidateURL(url); err != nil {
		return watch.Entity{}, fmt.Errorf("url must be a valid http(s) URL")
	}

	category := watch.EntityCategory(req.Category)
	if category == "" {
		category = watch.CategoryOther
	}
	if !watch.ValidCategory(category) {
		return watch.Entity{}, fmt.Errorf("category must be one of pricing|docs|changelog|other")
	}

	return watch.Entity{
		Name:     name,
		URL:      url,
		Category: category,
		Labels:   req.Labels,
	}, nil
}

func (s *Server) createEntity(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	entity, err := req.toEntity()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := s.store.CountEntities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count entities")
		return
	}
	if count >= s.cfg.Checks.MaxTracked {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("maximum number of tracked entities reached (%d)", s.cfg.Checks.MaxTracked))
		return
	}

	created, err := s.store.CreateEntity(r.Context(), entity)
	if err != nil {
		if errors.Is(err, watch.ErrDuplicateURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create entity")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := s.store.ListEntities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entities")
		return
	}
	if entities == nil {
		entities = []watch.Entity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")
	entity, err := s.store.GetEntity(r.Context(), entityID)
	if err != nil {
		if errors.Is(err, watch.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load entity")
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) updateEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")
	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	entity, err := req.toEntity()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entity.ID = entityID

	updated, err := s.store.UpdateEntity(r.Context(), entity)
	if err != nil {
		switch {
		case errors.Is(err, watch.ErrEntityNotFound):
			writeError(w, http.StatusNotFound, "entity not found")
		case errors.Is(err, watch.ErrDuplicateURL):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update entity")
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")
	if err := s.store.DeleteEntity(r.Context(), entityID); err != nil {
		if errors.Is(err, watch.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete entity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")
	outcome, err := s.checker.CheckOne(r.Context(), entityID)
	if err != nil {
		switch {
		case errors.Is(err, watch.ErrEntityNotFound):
			writeError(w, http.StatusNotFound, "entity not found")
		case errors.Is(err, watch.ErrCheckInFlight):
			writeError(w, http.StatusConflict, err.Error())
		default:
			// Acquisition failures are recorded on the entity; report them
			// with the cause so the caller can distinguish page problems
			// from service problems.
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) checkAll(w http.ResponseWriter, r *http.Request) {
	batch, err := s.coordinator.CheckAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to run batch check")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")
	entity, err := s.store.GetEntity(r.Context(), entityID)
	if err != nil {
		if errors.Is(err, watch.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load entity")
		return
	}

	depth := s.cfg.Checks.HistoryDepth
	snapshots, err := s.store.ListSnapshots(r.Context(), entityID, depth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	changes, err := s.store.ListChanges(r.Context(), entityID, depth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list changes")
		return
	}
	if snapshots == nil {
		snapshots = []watch.Snapshot{}
	}
	if changes == nil {
		changes = []watch.Change{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity":    entity,
		"snapshots": snapshots,
		"changes":   changes,
	})
}
