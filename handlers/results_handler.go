package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/services"
)

type ResultsHandler struct {
	resultsService services.ResultsService
}

func NewResultsHandler(rs services.ResultsService) *ResultsHandler {
	return &ResultsHandler{resultsService: rs}
}

type thirdPlaceQualifiersRequest struct {
	Teams []brackets.TeamID `json:"teams"`
}

// winnerRequest with an empty team clears the recorded winner.
type winnerRequest struct {
	Team brackets.TeamID `json:"team"`
}

func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultsService.Current(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, results)
}

func (h *ResultsHandler) RecordGroupStanding(w http.ResponseWriter, r *http.Request) {
	var req groupOrderRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(req.Order) == 0 {
		badRequestResponse(w, r, errors.New("order is required"))
		return
	}
	results, err := h.resultsService.RecordGroupStanding(r.Context(), groupIDParam(r), normalizeTeams(req.Order))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, results)
}

func (h *ResultsHandler) RecordThirdPlaceQualifiers(w http.ResponseWriter, r *http.Request) {
	var req thirdPlaceQualifiersRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	results, err := h.resultsService.RecordThirdPlaceQualifiers(r.Context(), normalizeTeams(req.Teams))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, results)
}

func (h *ResultsHandler) RecordMatchWinner(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	var req winnerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	team := brackets.TeamID(strings.ToUpper(strings.TrimSpace(string(req.Team))))

	results, err := h.resultsService.RecordMatchWinner(r.Context(), matchID, team)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, results)
}
