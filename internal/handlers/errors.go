package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/query"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/repositories"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/services"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taggable"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taglist"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/utils"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, taggable.ErrUnknownType),
		errors.Is(err, taggable.ErrUnknownContext),
		errors.Is(err, services.ErrTagNotFound):
		return http.StatusNotFound
	case errors.Is(err, tagtype.ErrInvalidOption),
		errors.Is(err, query.ErrConflictingContexts),
		errors.Is(err, taglist.ErrFrozen),
		errors.Is(err, services.ErrNoUpdateFields),
		errors.Is(err, services.ErrInvalidTagName):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrDuplicateTag),
		errors.Is(err, services.ErrTagExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// sendError replies with the status err maps to. Server errors are logged and
// their detail withheld.
func sendError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
		utils.SendJSONError(w, http.StatusText(status), status)
		return
	}
	log.Warn().Err(err).Int("status", status).Msg(msg)
	utils.SendJSONError(w, err.Error(), status)
}
