package handler

import (
	"context"
	"errors"
	"net/http"

	"address-risk-api/internal/client"
	"address-risk-api/internal/models"
	"address-risk-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	msgQueryRequired  = "Le champ 'q' est requis et doit être une chaîne non vide."
	msgGeocoderFailed = "Erreur serveur : impossible de contacter l'API externe."
	msgAddressNoMatch = "Adresse non trouvée. Aucun résultat ne correspond à votre recherche."
	msgInternalError  = "Erreur interne du serveur."
)

// AddressHandler handles address creation requests
type AddressHandler struct {
	service AddressResolver
}

// AddressResolver interface for dependency injection
type AddressResolver interface {
	ResolveAddress(context.Context, string) (*models.Address, error)
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(svc AddressResolver) *AddressHandler {
	return &AddressHandler{service: svc}
}

// CreateAddressRequest is the body of POST /api/addresses/.
type CreateAddressRequest struct {
	Q *string `json:"q" example:"67 rue de mandres"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateAddress handles POST /api/addresses/ requests
//
//	@Summary		Resolve and store an address
//	@Description	Geocodes q through the BAN search API and returns the stored address, creating it if its coordinates are new.
//	@Tags			addresses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateAddressRequest	true	"Search query"
//	@Success		200		{object}	models.Address
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/addresses/ [post]
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	var req CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Q == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgQueryRequired})
		return
	}

	address, err := h.service.ResolveAddress(c.Request.Context(), *req.Q)
	if err != nil {
		logger := log.Ctx(c.Request.Context())
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgQueryRequired})
		case errors.Is(err, client.ErrNoMatchFound):
			c.JSON(http.StatusNotFound, gin.H{"error": msgAddressNoMatch})
		case errors.Is(err, client.ErrUpstreamUnavailable):
			logger.Error().Err(err).Msg("geocoding upstream failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgGeocoderFailed})
		default:
			logger.Error().Err(err).Msg("address resolution failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		}
		return
	}

	c.JSON(http.StatusOK, address)
}
