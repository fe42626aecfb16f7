package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/services"
)

type BracketHandler struct {
	predictionService services.PredictionService
}

func NewBracketHandler(ps services.PredictionService) *BracketHandler {
	return &BracketHandler{predictionService: ps}
}

type groupOrderRequest struct {
	Order []brackets.TeamID `json:"order"`
}

type pickRequest struct {
	Team brackets.TeamID `json:"team"`
}

// GetBracket возвращает текущий прогноз пользователя.
func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	state, err := h.predictionService.Session(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, state)
}

func (h *BracketHandler) SetGroupOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req groupOrderRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.predictionService.SetGroupOrder(r.Context(), userID, groupIDParam(r), normalizeTeams(req.Order))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, state)
}

// ToggleThirdPlace selects the team if it is not selected and deselects it
// otherwise.
func (h *BracketHandler) ToggleThirdPlace(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	state, err := h.predictionService.ToggleThirdPlace(r.Context(), userID, teamIDParam(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, state)
}

func (h *BracketHandler) PickWinner(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	var req pickRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	team := brackets.TeamID(strings.ToUpper(strings.TrimSpace(string(req.Team))))
	if team == "" {
		badRequestResponse(w, r, errors.New("team is required"))
		return
	}

	state, err := h.predictionService.PickWinner(r.Context(), userID, matchID, team)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, state)
}

func (h *BracketHandler) ClearPick(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	state, err := h.predictionService.ClearPick(r.Context(), userID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, state)
}

// Submit фиксирует прогноз. После этого он доступен только для чтения.
func (h *BracketHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	sub, err := h.predictionService.Submit(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, sub, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	sub, err := h.predictionService.Submission(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, sub)
}
