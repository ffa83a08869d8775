package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/session"
)

// maxJSONBodySize caps every JSON request body, imports included
const maxJSONBodySize = 10 << 20

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(database database.Database, gate *session.Gate, tokens tokenIssuer, hosts imageHostFactory, startupTime time.Time) *routeHandlers {
	return &routeHandlers{
		healthHandler:   newHealthHandler(startupTime),
		sessionHandler:  newSessionHandler(gate, tokens),
		postHandler:     newPostHandler(database.PostRepo()),
		backupHandler:   newBackupHandler(database.PostRepo()),
		settingsHandler: newSettingsHandler(database.ImageConfigRepo(), hosts),
		imageHandler:    newImageHandler(database.ImageConfigRepo(), hosts),
	}
}

// readBody reads at most limit bytes of the request body
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errs.NewMaxBodySizeExceededError(limit)
		}
		return nil, errs.NewBadRequestError("could not read request body")
	}
	return data, nil
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	data, err := readBody(w, r, maxJSONBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errs.NewInvalidJSONError(err)
	}
	return nil
}
