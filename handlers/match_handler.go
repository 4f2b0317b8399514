package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ligamaster/livematch/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type lifecycleCommand func(r *http.Request, matchID int, actor services.Actor) (*services.MatchSnapshot, error)

// handleLifecycle is the shared shape of all lifecycle command handlers.
func (h *MatchHandler) handleLifecycle(w http.ResponseWriter, r *http.Request, cmd lifecycleCommand) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	snapshot, err := cmd(r, matchID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": snapshot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) StartMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, func(r *http.Request, matchID int, actor services.Actor) (*services.MatchSnapshot, error) {
		return h.matchService.StartMatch(r.Context(), matchID, actor)
	})
}

func (h *MatchHandler) EndFirstHalfHandler(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, func(r *http.Request, matchID int, actor services.Actor) (*services.MatchSnapshot, error) {
		return h.matchService.EndFirstHalf(r.Context(), matchID, actor)
	})
}

func (h *MatchHandler) StartSecondHalfHandler(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, func(r *http.Request, matchID int, actor services.Actor) (*services.MatchSnapshot, error) {
		return h.matchService.StartSecondHalf(r.Context(), matchID, actor)
	})
}

func (h *MatchHandler) EndMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, func(r *http.Request, matchID int, actor services.Actor) (*services.MatchSnapshot, error) {
		return h.matchService.EndMatch(r.Context(), matchID, actor)
	})
}

func (h *MatchHandler) FinalizeMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, func(r *http.Request, matchID int, actor services.Actor) (*services.MatchSnapshot, error) {
		var input struct {
			ExpectedVersion *int `json:"expected_version"`
		}
		if r.ContentLength != 0 {
			if err := readJSON(w, r, &input); err != nil {
				return nil, err
			}
		}
		return h.matchService.FinalizeMatch(r.Context(), matchID, actor, input.ExpectedVersion)
	})
}

func (h *MatchHandler) SuspendMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Reason          string `json:"reason"`
		ExpectedVersion *int   `json:"expected_version"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	snapshot, err := h.matchService.SuspendMatch(r.Context(), matchID, actor, input.Reason, input.ExpectedVersion)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": snapshot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatchSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	snapshot, err := h.matchService.GetSnapshot(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": snapshot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatchClockHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reading, err := h.matchService.ProjectClock(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"clock": reading}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListZoneMatchesHandler(w http.ResponseWriter, r *http.Request) {
	zoneID, err := getIDFromURL(r, "zoneID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var matchday *int
	if raw := r.URL.Query().Get("matchday"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil || day < 1 {
			badRequestResponse(w, r, fmt.Errorf("invalid matchday query parameter: %q", raw))
			return
		}
		matchday = &day
	}

	matches, err := h.matchService.ListZoneMatches(r.Context(), zoneID, matchday)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
