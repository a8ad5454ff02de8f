package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MRamiBalles/immolife/internal/platform/logger"
	"github.com/MRamiBalles/immolife/internal/savegame"
)

// API serves read-mostly REST endpoints for tooling and the save menu.
type API struct {
	game      Game
	hub       *Hub
	logger    *logger.Logger
	ioTimeout time.Duration
}

// NewAPI creates the REST handler. hub may be nil.
func NewAPI(g Game, hub *Hub, log *logger.Logger) *API {
	return &API{
		game:      g,
		hub:       hub,
		logger:    log.With("component", "api"),
		ioTimeout: 10 * time.Second,
	}
}

// HandleState returns the full game state.
// GET /api/state
func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, a.game.State())
}

// HandleListings fuzzy-searches the market.
// GET /api/listings?q=altbau
func (a *API) HandleListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	listings := a.game.SearchListings(r.URL.Query().Get("q"))
	jsonSuccess(w, map[string]any{
		"count":    len(listings),
		"listings": listings,
	})
}

// HandleSaves lists, writes or deletes save slots.
// GET /api/saves, POST /api/saves?slot=NAME, DELETE /api/saves?slot=NAME
func (a *API) HandleSaves(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.ioTimeout)
	defer cancel()
	slot := r.URL.Query().Get("slot")

	switch r.Method {
	case http.MethodGet:
		slots, err := a.game.GetSaveSlots(ctx)
		if err != nil {
			a.fail(w, err)
			return
		}
		jsonSuccess(w, map[string]any{"slots": slots})
	case http.MethodPost:
		if slot == "" {
			jsonError(w, "Missing slot", http.StatusBadRequest)
			return
		}
		if err := a.game.SaveGame(ctx, slot); err != nil {
			a.fail(w, err)
			return
		}
		jsonSuccess(w, map[string]any{"success": true, "slotName": slot})
	case http.MethodDelete:
		if slot == "" {
			jsonError(w, "Missing slot", http.StatusBadRequest)
			return
		}
		if err := a.game.DeleteSave(ctx, slot); err != nil {
			a.fail(w, err)
			return
		}
		jsonSuccess(w, map[string]any{"success": true, "slotName": slot})
	default:
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleLoad replaces the running game with a stored one.
// POST /api/load?slot=NAME
func (a *API) HandleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	slot := r.URL.Query().Get("slot")
	if slot == "" {
		jsonError(w, "Missing slot", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.ioTimeout)
	defer cancel()
	if err := a.game.LoadGame(ctx, slot); err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, map[string]any{"success": true, "slotName": slot})
}

// HandleStatus reports the calendar and connected clients.
// GET /api/status
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := a.game.State()
	online := 0
	if a.hub != nil {
		online = a.hub.ClientCount()
	}
	jsonSuccess(w, map[string]any{
		"date":         s.GameTime.Format(),
		"totalDays":    s.GameTime.TotalDays,
		"timeSettings": s.TimeSettings,
		"money":        s.Player.Money,
		"onlineCount":  online,
		"timestamp":    time.Now().Unix(),
	})
}

// RegisterRoutes sets up the REST routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", a.HandleState)
	mux.HandleFunc("/api/listings", a.HandleListings)
	mux.HandleFunc("/api/saves", a.HandleSaves)
	mux.HandleFunc("/api/load", a.HandleLoad)
	mux.HandleFunc("/api/status", a.HandleStatus)
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, savegame.ErrSaveNotFound):
		status = http.StatusNotFound
	case errors.Is(err, savegame.ErrVersionMismatch), errors.Is(err, savegame.ErrCorruptSave):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("Request failed", "error", err)
	}
	jsonError(w, err.Error(), status)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
