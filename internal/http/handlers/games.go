package handlers

import (
	"net/http"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/game"
	"confidential_casino/internal/solana"

	"github.com/gin-gonic/gin"
)

type GameInfo struct {
	Kind        domain.GameKind   `json:"kind"`
	HasChoice   bool              `json:"has_choice"`
	ChoiceHelp  string            `json:"choice_help,omitempty"`
	ResultSlots int               `json:"result_slots"`
	Multipliers []game.Multiplier `json:"multipliers"`
}

// Games lists the playable kinds with their display multipliers and stake limits.
func (h *Handler) Games(c *gin.Context) {
	f := h.Wagers.Factory()
	var games []GameInfo
	for _, kind := range f.Kinds() {
		s, err := f.Strategy(kind)
		if err != nil {
			continue
		}
		info := GameInfo{
			Kind:        kind,
			HasChoice:   s.HasChoice(),
			ResultSlots: s.ResultSlots(),
		}
		// crash pays the chosen target, nothing to show up front
		if kind != domain.GameKindCrash {
			info.Multipliers = s.DisplayMultipliers(0)
		}
		if s.HasChoice() {
			info.ChoiceHelp = s.ChoiceHelp()
		}
		games = append(games, info)
	}

	limits := h.Wagers.Limits()
	c.JSON(http.StatusOK, gin.H{
		"games":         games,
		"min_stake":     limits.MinStake,
		"max_stake":     limits.MaxStake,
		"min_stake_sol": solana.FormatSOL(limits.MinStake),
		"max_stake_sol": solana.FormatSOL(limits.MaxStake),

		// payouts come from the decrypted payout handle only
		"multipliers_display_only": true,
	})
}
