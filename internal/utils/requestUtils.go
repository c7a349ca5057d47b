package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SendJSONError writes {"error": message} with the given status.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	RespondWithJSON(w, statusCode, map[string]string{"error": message})
}

func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(response)
}

// GetObjectIDFromVars extracts and parses an ObjectID from mux.Vars.
func GetObjectIDFromVars(w http.ResponseWriter, r *http.Request, paramName string) (primitive.ObjectID, error) {
	vars := mux.Vars(r)
	idStr := vars[paramName]
	if idStr == "" {
		SendJSONError(w, "Missing ID parameter", http.StatusBadRequest)
		return primitive.NilObjectID, errors.New("missing ID parameter")
	}

	objID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		SendJSONError(w, "Invalid ID format", http.StatusBadRequest)
		return primitive.NilObjectID, errors.New("invalid ID format")
	}
	return objID, nil
}
