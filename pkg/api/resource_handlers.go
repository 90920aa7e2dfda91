package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/smartcampus/facilities/pkg/httputil"
)

func (s *Server) createResource(w http.ResponseWriter, r *http.Request) {
	var resource Resource
	if !httputil.ParseJSONOrError(w, r, &resource) {
		return
	}
	if err := resource.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	if err := s.resources.Create(r.Context(), &resource); err != nil {
		s.logger.WithError(err).Error("Failed to create resource")
		httputil.WriteInternalError(w, err)
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"resource_id": resource.ID,
		"name":        resource.Name,
	}).Info("Resource created")
	httputil.WriteCreated(w, resource)
}

func (s *Server) getResource(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	resource, err := s.resources.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			httputil.WriteNotFoundError(w, "resource not found")
			return
		}
		s.logger.WithError(err).Error("Failed to fetch resource")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, resource)
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.resources.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list resources")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, resources)
}

func (s *Server) searchResources(w http.ResponseWriter, r *http.Request) {
	filter := ResourceFilter{
		Type:     httputil.ParseQueryString(r, "type", ""),
		Location: httputil.ParseQueryString(r, "location", ""),
	}

	if raw := r.URL.Query().Get("min_capacity"); raw != "" {
		minCapacity, err := strconv.Atoi(raw)
		if err != nil || minCapacity < 0 {
			httputil.WriteBadRequest(w, "min_capacity must be a non-negative integer")
			return
		}
		filter.MinCapacity = &minCapacity
	}

	resources, err := s.resources.Search(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to search resources")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, resources)
}

func (s *Server) updateResource(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var resource Resource
	if !httputil.ParseJSONOrError(w, r, &resource) {
		return
	}
	// The path is authoritative for identity.
	resource.ID = id

	if err := resource.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	if err := s.resources.Update(r.Context(), &resource); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			httputil.WriteNotFoundError(w, "resource not found")
			return
		}
		s.logger.WithError(err).Error("Failed to update resource")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, resource)
}

func (s *Server) deleteResource(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.resources.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			httputil.WriteNotFoundError(w, "resource not found")
			return
		}
		s.logger.WithError(err).Error("Failed to delete resource")
		httputil.WriteInternalError(w, err)
		return
	}

	s.logger.WithField("resource_id", id).Info("Resource deleted")
	httputil.WriteNoContent(w)
}

func (s *Server) resourceAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.resources.Analytics(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute analytics")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, analytics)
}
