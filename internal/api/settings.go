package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/rs/zerolog"
)

// SettingsHandler serves the plain key/value settings store.
type SettingsHandler struct {
	settings storage.SettingStore
	logger   zerolog.Logger
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(settings storage.SettingStore, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger.With().Str("handler", "settings").Logger(),
	}
}

// List returns all settings.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.settings.All(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list settings")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// Get returns one setting.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := mux.Vars(r)["key"]

	value, err := h.settings.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to get setting")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve setting")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// Put stores one setting.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := mux.Vars(r)["key"]

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.settings.Set(ctx, key, body.Value); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to store setting")
		writeError(w, http.StatusInternalServerError, "Failed to store setting")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": body.Value})
}
