package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
	"github.com/rpupo63/inkwell/services"
)

// imageHostFactory builds the image host for a saved config
type imageHostFactory func(ctx context.Context, cfg models.ImageConfig) (services.ImageHost, error)

type settingsHandler struct {
	responder       Responder
	logger          zerolog.Logger
	imageConfigRepo *database.ImageConfigRepo
	hosts           imageHostFactory
}

func newSettingsHandler(imageConfigRepo *database.ImageConfigRepo, hosts imageHostFactory) settingsHandler {
	logger := log.With().Str("handlerName", "settingsHandler").Logger()

	return settingsHandler{
		responder:       NewResponder(logger),
		logger:          logger,
		imageConfigRepo: imageConfigRepo,
		hosts:           hosts,
	}
}

func settingsResponse(cfg models.ImageConfig, ok bool) ImageSettingsResponse {
	if !ok {
		return ImageSettingsResponse{ImageConfig: models.ImageConfig{}.Normalize()}
	}
	return ImageSettingsResponse{ImageConfig: cfg.Redacted(), Configured: cfg.IsComplete()}
}

// getImageSettings returns the image hosting settings with the token hidden
// @Summary Get image settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ImageSettingsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /settings/images [get]
func (h settingsHandler) getImageSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, ok, err := h.imageConfigRepo.Get(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, settingsResponse(cfg, ok))
	}
}

// saveImageSettings stores the image hosting settings
// @Summary Save image settings
// @Description A token equal to the redaction mask keeps the stored token.
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param settings body models.ImageConfig true "Image hosting settings"
// @Success 200 {object} ImageSettingsResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Unknown provider"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /settings/images [put]
func (h settingsHandler) saveImageSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg models.ImageConfig
		if err := decodeJSON(w, r, &cfg); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		cfg = cfg.Normalize()
		if cfg.Provider != models.ImageProviderGitHub && cfg.Provider != models.ImageProviderS3 {
			h.responder.WriteError(w, errs.NewInvalidFieldError("provider", "provider must be github or s3"))
			return
		}

		saved, err := h.imageConfigRepo.Save(r.Context(), cfg)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, settingsResponse(saved, true))
	}
}

// testImageSettings checks that the saved settings reach the image host
// @Summary Test image settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatusResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 412 {object} ErrorResponse "Precondition Failed - Image hosting not configured"
// @Failure 502 {object} ErrorResponse "Bad Gateway - Cannot connect, check your settings"
// @Router /settings/images/test [post]
func (h settingsHandler) testImageSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, err := configuredHost(r.Context(), h.imageConfigRepo, h.hosts)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := host.TestConnection(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("Image host connection test failed")
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, StatusResponse{Status: "ok"})
	}
}

// configuredHost loads the saved settings and builds their host
func configuredHost(ctx context.Context, repo *database.ImageConfigRepo, hosts imageHostFactory) (services.ImageHost, error) {
	cfg, ok, err := repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || !cfg.IsComplete() {
		return nil, errs.NewConfigMissingError("image hosting")
	}
	return hosts(ctx, cfg)
}
