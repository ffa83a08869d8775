package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/services"
)

// multipart overhead allowed on top of the image itself
const uploadFormOverhead = 1 << 20

type imageHandler struct {
	responder       Responder
	logger          zerolog.Logger
	imageConfigRepo *database.ImageConfigRepo
	hosts           imageHostFactory
}

func newImageHandler(imageConfigRepo *database.ImageConfigRepo, hosts imageHostFactory) imageHandler {
	logger := log.With().Str("handlerName", "imageHandler").Logger()

	return imageHandler{
		responder:       NewResponder(logger),
		logger:          logger,
		imageConfigRepo: imageConfigRepo,
		hosts:           hosts,
	}
}

// uploadImage stores an image with the configured host
// @Summary Upload image
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image, at most 10MB"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Not an image"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 412 {object} ErrorResponse "Precondition Failed - Image hosting not configured"
// @Failure 413 {object} ErrorResponse "Request Entity Too Large"
// @Router /images [post]
func (h imageHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+uploadFormOverhead)
		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			switch {
			case errors.As(err, &maxErr):
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(services.MaxImageSize))
			case errors.Is(err, http.ErrMissingFile):
				h.responder.WriteError(w, errs.NewMissingRequiredFieldError("file"))
			default:
				h.responder.WriteError(w, errs.NewInvalidFormatError("expected a multipart form with a file field", err))
			}
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, services.MaxImageSize+1))
		if err != nil {
			h.responder.WriteError(w, errs.NewBadRequestError("could not read uploaded file"))
			return
		}
		if _, err := services.DetectImageType(data); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		host, err := configuredHost(r.Context(), h.imageConfigRepo, h.hosts)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		name := services.ImageFileName(header.Filename)
		url, err := host.Upload(r.Context(), name, data)
		if err != nil {
			h.logger.Error().Err(err).Str("fileName", name).Msg("Image upload failed")
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("fileName", name).Int("size", len(data)).Msg("Image uploaded")
		h.responder.WriteJSONStatus(w, http.StatusCreated, UploadResponse{URL: url})
	}
}
