package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/awsford/deeplens-maze-solver/common/logging"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/credentials"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/metrics"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/objectstore"
)

// Resolver turns a maze event into a displayable record.
type Resolver interface {
	Resolve(ctx context.Context, ev models.MazeEvent) (models.MazeRecord, error)
}

// ResolverConfig configures an ImageResolver.
type ResolverConfig struct {
	// Prefix is passed to the object store for every key.
	Prefix string

	// Timeout bounds the resolution of one event. Zero means no limit.
	Timeout time.Duration

	Logger *slog.Logger
}

// ImageResolver resolves the four image keys of an event one after another,
// authenticating every storage call with the same bearer token.
type ImageResolver struct {
	creds   credentials.Source
	store   objectstore.Store
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewImageResolver creates an ImageResolver.
func NewImageResolver(creds credentials.Source, store objectstore.Store, cfg ResolverConfig) *ImageResolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageResolver{
		creds:   creds,
		store:   store,
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
		logger:  logger.With(slog.String(logging.FieldComponent, "image-resolver")),
		now:     time.Now,
	}
}

// Resolve validates ev and resolves its images. It returns either a complete
// record or an error; a partially resolved record is never returned.
// Validation failures wrap models.ErrInvalidEvent, everything else is a
// *models.ResolutionError.
func (r *ImageResolver) Resolve(ctx context.Context, ev models.MazeEvent) (models.MazeRecord, error) {
	if err := ev.Validate(); err != nil {
		return models.MazeRecord{}, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	token, err := r.creds.Token(ctx)
	if err != nil {
		return models.MazeRecord{}, &models.ResolutionError{Err: err}
	}

	opts := objectstore.GetOptions{
		Prefix:  r.prefix,
		Headers: objectstore.BearerHeaders(token),
	}

	record := models.MazeRecord{Source: ev}
	for _, field := range models.Fields {
		key := ev.Key(field)
		ref, err := r.store.Get(ctx, key, opts)
		if err != nil {
			metrics.ObjectResolutions.WithLabelValues(string(field), "error").Inc()
			return models.MazeRecord{}, &models.ResolutionError{Field: field, Key: key, Err: err}
		}
		metrics.ObjectResolutions.WithLabelValues(string(field), "ok").Inc()

		r.logger.Debug("resolved image",
			logging.MazeField(string(field)),
			logging.ObjectKey(key))
		record.SetImage(field, ref)
	}

	record.ResolvedAt = r.now()
	return record, nil
}
