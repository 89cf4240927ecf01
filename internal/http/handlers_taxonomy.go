package http

import (
	"net/http"
	"strings"

	"budgeting/internal/core"
)

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	tax, err := s.backend.Taxonomy.LoadTaxonomy(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaxonomyResponse(tax))
}

func (s *Server) handleSeedTaxonomy(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.Taxonomy.SeedDefaults(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Groups > 0 || res.Categories > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]int{"groups": res.Groups, "categories": res.Categories})
}

// handleSuggestCategory resolves ?description= against the merchant links.
// A miss answers with a null category.
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	desc := sanitizeInput(r.URL.Query().Get("description"))
	if desc == "" {
		writeError(w, r, &core.ValidationError{Field: "description", Message: "description is required", Err: core.ErrEmptyDescription})
		return
	}
	cat, ok, err := s.backend.Categorizer.SuggestCategory(r.Context(), desc, ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"category": nil})
		return
	}
	tax, err := s.backend.Taxonomy.LoadTaxonomy(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": newCategoryResponse(tax, cat)})
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.backend.Categorizer.ListLinks(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, newLinkResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSaveLink serves both POST (create) and PUT /{id} (edit).
func (s *Server) handleSaveLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	link := core.MerchantLink{
		ID:         r.PathValue("id"),
		Keyword:    sanitizeInput(req.Keyword),
		CategoryID: strings.TrimSpace(req.CategoryID),
		OwnerID:    ownerFrom(r),
	}
	saved, err := s.backend.Categorizer.SaveLink(r.Context(), link)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if link.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, newLinkResponse(saved))
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Categorizer.DeleteLink(r.Context(), ownerFrom(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
