package handlers

import (
	"net/http"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/Dosada05/worldcup-predictor/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.leaderboardService.Leaderboard(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, lb)
}

// RegistryHandler serves the static tournament reference data.
type RegistryHandler struct {
	reg *brackets.Registry
}

func NewRegistryHandler(reg *brackets.Registry) *RegistryHandler {
	return &RegistryHandler{reg: reg}
}

type registryResponse struct {
	Name      string                  `json:"name"`
	Teams     []brackets.Team         `json:"teams"`
	Groups    []brackets.Group        `json:"groups"`
	Matches   []brackets.KnockoutSlot `json:"matches"`
	SeedSlots []brackets.SeedSlot     `json:"seed_slots"`
}

func (h *RegistryHandler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	respond(w, r, registryResponse{
		Name:      h.reg.Name(),
		Teams:     h.reg.Teams(),
		Groups:    h.reg.Groups(),
		Matches:   h.reg.Matches(),
		SeedSlots: h.reg.SeedSlots(),
	})
}
