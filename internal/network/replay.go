package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/platform/logger"
)

// ReplayHandler serves the event journal for the history view.
type ReplayHandler struct {
	journal *events.Journal
	logger  *logger.Logger
}

// NewReplayHandler creates a new journal replay handler.
func NewReplayHandler(j *events.Journal, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{journal: j, logger: log}
}

// ReplayEvent is a journal record with a human-readable summary.
type ReplayEvent struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	GameDay   int             `json:"gameDay"`
	Type      string          `json:"type"`
	Summary   string          `json:"summary"`
	Impact    string          `json:"impact"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ReplayResponse is the API response for a journal query.
type ReplayResponse struct {
	TotalEvents int           `json:"totalEvents"`
	FilteredBy  string        `json:"filteredBy,omitempty"`
	GeneratedAt string        `json:"generatedAt"`
	Events      []ReplayEvent `json:"events"`
}

// HandleReplay returns journal records, oldest first.
// GET /api/journal?day=N&type=monthAdvanced&limit=50&details=true
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	details := q.Get("details") == "true"

	var recs []events.Record
	filter := ""
	switch {
	case q.Get("day") != "":
		day, err := strconv.Atoi(q.Get("day"))
		if err != nil {
			jsonError(w, "Invalid day", http.StatusBadRequest)
			return
		}
		recs = rh.journal.ByDay(day)
		filter = "day " + q.Get("day")
	case q.Get("type") != "":
		recs = rh.journal.ByType(events.EventType(q.Get("type")))
		filter = "type " + q.Get("type")
	default:
		recs = rh.journal.Recent(0)
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if limit > 0 && limit < len(recs) {
			recs = recs[len(recs)-limit:]
		}
	}

	out := make([]ReplayEvent, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toReplayEvent(rec, details))
	}

	jsonSuccess(w, ReplayResponse{
		TotalEvents: len(out),
		FilteredBy:  filter,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      out,
	})
}

// HandleStats counts retained records per event type.
// GET /api/journal/stats
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats := make(map[string]int, len(events.AllTypes))
	for _, rec := range rh.journal.Recent(0) {
		stats[string(rec.Type)]++
	}
	jsonSuccess(w, map[string]any{
		"generatedAt": time.Now().Format(time.RFC3339),
		"total":       rh.journal.Len(),
		"stats":       stats,
	})
}

// RegisterRoutes sets up the journal routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/journal", rh.HandleReplay)
	mux.HandleFunc("/api/journal/stats", rh.HandleStats)
}

func toReplayEvent(rec events.Record, details bool) ReplayEvent {
	e := ReplayEvent{
		ID:        rec.ID,
		Timestamp: rec.Timestamp.Format("15:04:05"),
		GameDay:   rec.GameDay,
		Type:      string(rec.Type),
	}
	e.Summary, e.Impact = Summarize(rec)
	if details {
		e.Payload = rec.Payload
	}
	return e
}

// Summarize renders a one-line German summary of a record and classifies its cash impact.
func Summarize(rec events.Record) (summary, impact string) {
	var p struct {
		Property struct {
			Name string `json:"name"`
		} `json:"property"`
		Loan struct {
			Amount int64 `json:"amount"`
		} `json:"loan"`
		Renovation struct {
			Name string `json:"name"`
		} `json:"renovation"`
		SalePrice int64  `json:"salePrice"`
		NetChange int64  `json:"netChange"`
		Count     int    `json:"count"`
		SlotName  string `json:"slotName"`
		Year      int    `json:"year"`
	}
	_ = json.Unmarshal(rec.Payload, &p)

	switch rec.Type {
	case events.EventTypePropertyBought:
		return "Immobilie gekauft: " + p.Property.Name, "NEGATIVE"
	case events.EventTypePropertySold:
		return "Immobilie verkauft: " + p.Property.Name + " für " + humanize.Comma(p.SalePrice) + " €", "POSITIVE"
	case events.EventTypePropertyRented:
		return "Neuer Mieter für " + p.Property.Name, "POSITIVE"
	case events.EventTypePropertyRenovated:
		return p.Renovation.Name + " an " + p.Property.Name, "NEGATIVE"
	case events.EventTypeLoanApproved:
		return "Kredit über " + humanize.Comma(p.Loan.Amount) + " € bewilligt", "POSITIVE"
	case events.EventTypeMonthAdvanced:
		impact = "NEUTRAL"
		if p.NetChange > 0 {
			impact = "POSITIVE"
		} else if p.NetChange < 0 {
			impact = "NEGATIVE"
		}
		return "Monatsabrechnung: " + humanize.Comma(p.NetChange) + " €", impact
	case events.EventTypeYearAdvanced:
		return "Neues Jahr: " + strconv.Itoa(p.Year), "NEUTRAL"
	case events.EventTypeNewPropertiesAdded:
		return strconv.Itoa(p.Count) + " neue Angebote auf dem Markt", "NEUTRAL"
	case events.EventTypePropertiesRemoved:
		return strconv.Itoa(p.Count) + " Angebote vom Markt genommen", "NEUTRAL"
	case events.EventTypeGameSaved:
		return "Spiel gespeichert: " + p.SlotName, "NEUTRAL"
	case events.EventTypeGameLoaded:
		return "Spielstand geladen: " + p.SlotName, "NEUTRAL"
	case events.EventTypeSaveDeleted:
		return "Spielstand gelöscht: " + p.SlotName, "NEUTRAL"
	case events.EventTypeNewGameStarted:
		return "Neues Spiel gestartet", "NEUTRAL"
	case events.EventTypeTimeSpeedChanged:
		return "Spielgeschwindigkeit geändert", "NEUTRAL"
	case events.EventTypeDayAdvanced:
		return "Ein Tag ist vergangen", "NEUTRAL"
	default:
		return "Ereignis " + string(rec.Type), "NEUTRAL"
	}
}
