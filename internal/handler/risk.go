package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"address-risk-api/internal/client"
	"address-risk-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	msgAddressNotFound = "Adresse non trouvée."
	msgRiskFailed      = "Erreur serveur : échec de la récupération des données de Géorisques."
)

// RiskHandler handles risk report requests
type RiskHandler struct {
	service RiskGetter
}

// RiskGetter interface for dependency injection
type RiskGetter interface {
	GetRisks(context.Context, int64) (json.RawMessage, error)
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(svc RiskGetter) *RiskHandler {
	return &RiskHandler{service: svc}
}

// GetRisks handles GET /api/addresses/:id/risks/ requests
//
//	@Summary		Risk report of a stored address
//	@Description	Forwards the address coordinates to Géorisques and returns its report unmodified.
//	@Tags			addresses
//	@Produce		json
//	@Param			id	path		int	true	"Address id"
//	@Success		200	{object}	object
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/addresses/{id}/risks/ [get]
func (h *RiskHandler) GetRisks(c *gin.Context) {
	id, ok := parseAddressID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": msgAddressNotFound})
		return
	}

	payload, err := h.service.GetRisks(c.Request.Context(), id)
	if err != nil {
		logger := log.Ctx(c.Request.Context())
		switch {
		case errors.Is(err, service.ErrAddressNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": msgAddressNotFound})
		case errors.Is(err, client.ErrUpstreamUnavailable):
			logger.Error().Err(err).Int64("address_id", id).Msg("risk upstream failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgRiskFailed})
		default:
			logger.Error().Err(err).Int64("address_id", id).Msg("risk lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		}
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// parseAddressID accepts only plain decimal digits, so "+1" or "-1" are not ids.
func parseAddressID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
