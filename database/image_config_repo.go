package database

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

// ImageConfigRepo holds the image hosting settings
type ImageConfigRepo struct {
	store  Store
	mu     sync.Mutex
	logger zerolog.Logger
}

func NewImageConfigRepo(store Store) *ImageConfigRepo {
	return &ImageConfigRepo{
		store:  store,
		logger: log.With().Str("repoName", "imageConfigRepo").Logger(),
	}
}

// Get returns the saved settings. ok is false when nothing was saved yet.
func (r *ImageConfigRepo) Get(ctx context.Context) (cfg models.ImageConfig, ok bool, err error) {
	data, ok, err := r.store.Get(ctx, ImageConfigKey)
	if err != nil {
		return models.ImageConfig{}, false, errs.NewDatabaseError("load", "image config", err)
	}
	if !ok {
		return models.ImageConfig{}, false, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.ImageConfig{}, false, errs.NewDatabaseCorruptionError("load image config", err)
	}
	return cfg.Normalize(), true, nil
}

// Save normalizes and stores cfg. A redacted token keeps the saved one, so
// settings read back through the API can be saved again unchanged.
func (r *ImageConfigRepo) Save(ctx context.Context, cfg models.ImageConfig) (models.ImageConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg = cfg.Normalize()
	if cfg.Token == models.RedactedToken {
		prev, ok, err := r.Get(ctx)
		if err != nil {
			return models.ImageConfig{}, err
		}
		cfg.Token = ""
		if ok {
			cfg.Token = prev.Token
		}
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return models.ImageConfig{}, errs.NewInternalErrorWithCause("failed to encode image config", err)
	}
	if err := r.store.Set(ctx, ImageConfigKey, data); err != nil {
		return models.ImageConfig{}, errs.NewDatabaseError("save", "image config", err)
	}

	r.logger.Info().Str("provider", cfg.Provider).Msg("Image hosting settings saved")
	return cfg, nil
}
