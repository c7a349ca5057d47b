package handlers

import (
	"net/http"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/database"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/utils"
)

type CommonHandler struct {
	db database.Service
}

func NewCommonHandler(db database.Service) *CommonHandler {
	return &CommonHandler{db: db}
}

func (h *CommonHandler) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := h.db.Health()
	status := http.StatusOK
	if _, down := health["error"]; down {
		status = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, status, health)
}
