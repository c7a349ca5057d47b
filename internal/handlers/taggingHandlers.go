package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/query"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/services"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taggable"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taglist"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/utils"
)

type TaggingHandler struct {
	registry *taggable.Registry
	service  services.TaggingService
}

func NewTaggingHandler(registry *taggable.Registry, service services.TaggingService) *TaggingHandler {
	return &TaggingHandler{registry: registry, service: service}
}

type tagListResponse struct {
	Type    string              `json:"type"`
	ID      primitive.ObjectID  `json:"id"`
	Context string              `json:"context"`
	Tags    []string            `json:"tags"`
	TagList string              `json:"tag_list"`
	Taggers map[string][]string `json:"taggers,omitempty"`
}

// SetTagListRequest replaces a list. Tags and TagList are both parsed with
// the context's parser and joined.
type SetTagListRequest struct {
	Tags    []string `json:"tags"`
	TagList string   `json:"tag_list"`
}

// UpdateTagListRequest adds and removes tags. Options accepts "parse".
type UpdateTagListRequest struct {
	Add     []string       `json:"add"`
	Remove  []string       `json:"remove"`
	Options map[string]any `json:"options"`
}

func (h *TaggingHandler) resolveType(w http.ResponseWriter, r *http.Request) (*taggable.Type, bool) {
	typ, err := h.registry.Resolve(models.Reference{Type: mux.Vars(r)["type"]})
	if err != nil {
		sendError(w, err, "Unknown taggable type")
		return nil, false
	}
	return typ, true
}

// loadRecord resolves the record addressed by the request and loads its lists.
func (h *TaggingHandler) loadRecord(w http.ResponseWriter, r *http.Request) (*taggable.Record, bool) {
	typ, ok := h.resolveType(w, r)
	if !ok {
		return nil, false
	}
	id, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return nil, false
	}
	rec := typ.Record(id)
	if err := h.service.Load(r.Context(), rec); err != nil {
		sendError(w, err, "Error loading tag lists")
		return nil, false
	}
	return rec, true
}

func respondWithTagList(w http.ResponseWriter, rec *taggable.Record, context string) {
	def, err := rec.Type().TagType(context)
	if err != nil {
		sendError(w, err, "Unknown context")
		return
	}
	all, err := rec.AllTagList(context)
	if err != nil {
		sendError(w, err, "Error reading tag list")
		return
	}
	resp := tagListResponse{
		Type:    rec.Ref().Type,
		ID:      rec.ID(),
		Context: def.Context(),
		Tags:    all.Tags(),
		TagList: all.String(),
	}
	if taggers, _ := rec.TaggerTagList(context); taggers != nil {
		resp.Taggers = make(map[string][]string)
		for _, list := range taggers.Lists() {
			resp.Taggers[list.Tagger().Key()] = list.Tags()
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *TaggingHandler) GetTagList(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	respondWithTagList(w, rec, mux.Vars(r)["context"])
}

func (h *TaggingHandler) SetTagList(w http.ResponseWriter, r *http.Request) {
	var req SetTagListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Invalid JSON payload for SetTagList")
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	context := mux.Vars(r)["context"]

	values := req.Tags
	if req.TagList != "" {
		values = append(values, req.TagList)
	}
	if err := rec.SetTagList(context, values...); err != nil {
		sendError(w, err, "Error setting tag list")
		return
	}
	if err := h.service.Save(r.Context(), rec); err != nil {
		sendError(w, err, "Error saving tag list")
		return
	}

	log.Info().Str("taggable", rec.Ref().Key()).Str("context", context).Msg("Tag list replaced")
	respondWithTagList(w, rec, context)
}

func (h *TaggingHandler) UpdateTagList(w http.ResponseWriter, r *http.Request) {
	var req UpdateTagListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Invalid JSON payload for UpdateTagList")
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := taglist.OptionsFromMap(req.Options)
	if err != nil {
		sendError(w, err, "Invalid tag list options")
		return
	}

	rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	context := mux.Vars(r)["context"]

	list, err := rec.TagList(context)
	if err != nil {
		sendError(w, err, "Error reading tag list")
		return
	}
	if len(req.Add) > 0 {
		if err := list.AddWithOptions(opts, req.Add...); err != nil {
			sendError(w, err, "Error adding tags")
			return
		}
	}
	if len(req.Remove) > 0 {
		if err := list.RemoveWithOptions(opts, req.Remove...); err != nil {
			sendError(w, err, "Error removing tags")
			return
		}
	}
	if err := h.service.Save(r.Context(), rec); err != nil {
		sendError(w, err, "Error saving tag list")
		return
	}

	log.Info().Str("taggable", rec.Ref().Key()).Str("context", context).Int("added", len(req.Add)).Int("removed", len(req.Remove)).Msg("Tag list updated")
	respondWithTagList(w, rec, context)
}

func (h *TaggingHandler) DestroyTaggings(w http.ResponseWriter, r *http.Request) {
	typ, ok := h.resolveType(w, r)
	if !ok {
		return
	}
	id, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	if err := h.service.Destroy(r.Context(), typ.Record(id)); err != nil {
		sendError(w, err, "Error destroying taggings")
		return
	}
	log.Info().Str("taggable", typ.Ref(id).Key()).Msg("Taggings destroyed")
	w.WriteHeader(http.StatusNoContent)
}

// TaggedWith searches entities by tag. Tags come from repeated "tag"
// parameters; every other parameter is a query option.
func (h *TaggingHandler) TaggedWith(w http.ResponseWriter, r *http.Request) {
	typ, ok := h.resolveType(w, r)
	if !ok {
		return
	}

	tags, raw, err := queryOptions(r)
	if err != nil {
		sendError(w, err, "Invalid tagged-with parameters")
		return
	}
	opts, err := query.OptionsFromMap(raw)
	if err != nil {
		sendError(w, err, "Invalid tagged-with parameters")
		return
	}

	ids, err := h.service.TaggedWith(r.Context(), typ, opts, tags...)
	if err != nil {
		sendError(w, err, "Error running tagged-with query")
		return
	}

	log.Info().Str("taggable_type", typ.Name()).Str("mode", opts.Mode().String()).Int("count", len(ids)).Msg("Tagged-with query served")
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"ids": ids, "count": len(ids)})
}

var boolParams = map[string]bool{
	"exclude": true, "any": true, "match_all": true, "all": true, "wild": true, "parse": true,
}

// queryOptions converts URL parameters into the typed values the option
// decoder expects. Unknown parameters are passed through so it rejects them.
func queryOptions(r *http.Request) ([]string, map[string]any, error) {
	var tags []string
	raw := make(map[string]any)

	for key, values := range r.URL.Query() {
		switch {
		case key == "tag":
			tags = append(tags, values...)
		case key == "on" || key == "context":
			var contexts []string
			for _, v := range values {
				for _, c := range strings.Split(v, ",") {
					if c = strings.TrimSpace(c); c != "" {
						contexts = append(contexts, c)
					}
				}
			}
			raw[key] = contexts
		case key == "start_at" || key == "end_at":
			t, err := time.Parse(time.RFC3339, values[0])
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s must be an RFC 3339 time", tagtype.ErrInvalidOption, key)
			}
			raw[key] = t
		case boolParams[key]:
			b, err := strconv.ParseBool(values[0])
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s must be a bool", tagtype.ErrInvalidOption, key)
			}
			raw[key] = b
		default:
			raw[key] = values[0]
		}
	}
	return tags, raw, nil
}
