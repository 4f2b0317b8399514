package handlers

import (
	"net/http"

	"github.com/ligamaster/livematch/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
}

func NewStandingsHandler(standingsService services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standingsService: standingsService}
}

func (h *StandingsHandler) GetZoneTableHandler(w http.ResponseWriter, r *http.Request) {
	zoneID, err := getIDFromURL(r, "zoneID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	table, err := h.standingsService.ZoneTable(r.Context(), zoneID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StandingsHandler) GetZoneTopScorersHandler(w http.ResponseWriter, r *http.Request) {
	zoneID, err := getIDFromURL(r, "zoneID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	scorers, err := h.standingsService.ZoneTopScorers(r.Context(), zoneID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"top_scorers": scorers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
