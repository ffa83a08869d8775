package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/database"
)

type backupHandler struct {
	responder Responder
	logger    zerolog.Logger
	postRepo  *database.PostRepo
	now       func() time.Time
}

func newBackupHandler(postRepo *database.PostRepo) backupHandler {
	logger := log.With().Str("handlerName", "backupHandler").Logger()

	return backupHandler{
		responder: NewResponder(logger),
		logger:    logger,
		postRepo:  postRepo,
		now:       time.Now,
	}
}

// exportPosts downloads every post, drafts included
// @Summary Export posts
// @Tags Backup
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post "Backup file"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error reading posts"
// @Router /export [get]
func (h backupHandler) exportPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h.postRepo.ExportAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, database.BackupFileName(h.now())))
		if _, err := w.Write(data); err != nil {
			h.logger.Error().Err(err).Msg("error writing export")
		}
	}
}

// importPosts replaces every post with the uploaded backup
// @Summary Import posts
// @Description Replaces the whole collection. Nothing changes when any record is invalid.
// @Tags Backup
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param backup body []models.Post true "Backup file contents"
// @Success 200 {object} ImportResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid backup"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 413 {object} ErrorResponse "Request Entity Too Large"
// @Router /import [post]
func (h backupHandler) importPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readBody(w, r, maxJSONBodySize)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		imported, err := h.postRepo.ImportAll(r.Context(), data)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, ImportResponse{Imported: imported})
	}
}
