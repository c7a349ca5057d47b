package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/services"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taggable"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/utils"
)

type TagHandler struct {
	registry *taggable.Registry
	service  services.TagService
}

func NewTagHandler(registry *taggable.Registry, service services.TagService) *TagHandler {
	return &TagHandler{registry: registry, service: service}
}

func (h *TagHandler) resolveContext(w http.ResponseWriter, r *http.Request) (*tagtype.TagType, bool) {
	vars := mux.Vars(r)
	typ, err := h.registry.Resolve(models.Reference{Type: vars["type"]})
	if err != nil {
		sendError(w, err, "Unknown taggable type")
		return nil, false
	}
	def, err := typ.TagType(vars["context"])
	if err != nil {
		sendError(w, err, "Unknown context")
		return nil, false
	}
	return def, true
}

func (h *TagHandler) GetTags(w http.ResponseWriter, r *http.Request) {
	def, ok := h.resolveContext(w, r)
	if !ok {
		return
	}

	tags, err := h.service.GetTags(r.Context(), def)
	if err != nil {
		sendError(w, err, "Error getting tags from service")
		return
	}

	log.Info().Int("count", len(tags)).Str("context", def.Context()).Msg("Tags retrieved successfully")
	utils.RespondWithJSON(w, http.StatusOK, tags)
}

func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	def, ok := h.resolveContext(w, r)
	if !ok {
		return
	}
	tagID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	tag, err := h.service.GetTag(r.Context(), def, tagID)
	if err != nil {
		sendError(w, err, "Error getting tag from service")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	def, ok := h.resolveContext(w, r)
	if !ok {
		return
	}
	tagID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	deleted, err := h.service.DeleteTag(r.Context(), def, tagID)
	if err != nil {
		sendError(w, err, "Error deleting tag via service")
		return
	}

	if deleted {
		log.Info().Str("tag_id", tagID.Hex()).Str("context", def.Context()).Msg("Tag deleted successfully")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	def, ok := h.resolveContext(w, r)
	if !ok {
		return
	}
	tagID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	var updatePayload models.TagUpdate
	if err := json.NewDecoder(r.Body).Decode(&updatePayload); err != nil {
		log.Error().Err(err).Msg("Invalid JSON payload for UpdateTag")
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	updatedTag, err := h.service.UpdateTag(r.Context(), def, tagID, updatePayload)
	if err != nil {
		sendError(w, err, "Error updating tag via service")
		return
	}

	log.Info().Str("tag_id", tagID.Hex()).Str("context", def.Context()).Msg("Tag updated successfully")
	utils.RespondWithJSON(w, http.StatusOK, updatedTag)
}
