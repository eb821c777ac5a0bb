// Package services implements short link creation and lookup on top of a link store.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"go-shortlink/config"
	"go-shortlink/storage"
	"go-shortlink/types"
	"go-shortlink/urlgen"
	"go-shortlink/utils"
)

var (
	ErrInvalidURL        = errors.New("invalid or missing URL")
	ErrIDConflict        = errors.New("short link id already exists")
	ErrRetriesExhausted  = errors.New("short link id retries exhausted")
	ErrStoreUnavailable  = errors.New("link store unavailable")
	ErrInvalidDependency = errors.New("invalid service dependency")
)

func handleStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrIDExists):
		return ErrIDConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

// LinkService creates and reads short links.
type LinkService interface {
	CreateShortLink(ctx context.Context, originalURL string) (types.ShortLink, error)
	GetShortLink(ctx context.Context, id string) (types.ShortLink, bool, error)
}

type linkService struct {
	store     storage.Storage
	generator urlgen.Generator
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewLinkService wires the store and generator with the allocation settings of cfg.
func NewLinkService(store storage.Storage, generator urlgen.Generator, cfg *config.Config, logger *zap.Logger) (LinkService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store cannot be nil", ErrInvalidDependency)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", ErrInvalidDependency)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", ErrInvalidDependency)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		store:     store,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// CreateShortLink validates originalURL and stores it under a freshly generated id,
// drawing a new id after each conflict until MaxRetries attempts are spent.
func (s *linkService) CreateShortLink(ctx context.Context, originalURL string) (types.ShortLink, error) {
	if err := utils.ValidateURL(originalURL); err != nil {
		return types.ShortLink{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		id := s.generator.Generate(s.cfg.IDLength)
		shortURL, err := utils.ShortURL(s.cfg.ShortURLMode, s.cfg.BaseURL, originalURL, id)
		if err != nil {
			return types.ShortLink{}, err
		}

		link := types.ShortLink{
			ID:          id,
			OriginalURL: originalURL,
			ShortURL:    shortURL,
			CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
			VisitCount:  0,
		}

		stored, err := s.store.PutIfAbsent(ctx, link)
		if err == nil {
			return stored, nil
		}

		err = handleStorageError(err)
		if !errors.Is(err, ErrIDConflict) {
			return types.ShortLink{}, err
		}

		s.logger.Warn("Short link id collision",
			zap.String("id", id),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", s.cfg.MaxRetries))

		if attempt < s.cfg.MaxRetries {
			if err := s.backoff(ctx); err != nil {
				return types.ShortLink{}, err
			}
		}
	}

	s.logger.Error("Short link id retries exhausted",
		zap.String("originalURL", originalURL),
		zap.Int("attempts", s.cfg.MaxRetries))
	return types.ShortLink{}, fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, s.cfg.MaxRetries)
}

// backoff sleeps for RetryBackoff plus up to the same amount of jitter.
func (s *linkService) backoff(ctx context.Context) error {
	if s.cfg.RetryBackoff <= 0 {
		return nil
	}

	timer := time.NewTimer(s.cfg.RetryBackoff + rand.N(s.cfg.RetryBackoff))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *linkService) GetShortLink(ctx context.Context, id string) (types.ShortLink, bool, error) {
	link, found, err := s.store.Get(ctx, id)
	if err != nil {
		return types.ShortLink{}, false, handleStorageError(err)
	}
	return link, found, nil
}
