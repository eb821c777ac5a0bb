package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"go-shortlink/types"
)

// InMemoryStorage implements the Storage interface using an in-memory map.
type InMemoryStorage struct {
	links    map[string]types.ShortLink // Map of id to ShortLink
	mu       sync.RWMutex               // Guards links and count
	capacity int                        // Maximum number of links that can be stored
	count    int                        // Current number of stored links
	logger   *zap.Logger
}

// NewInMemoryStorage creates and returns a new InMemoryStorage instance
func NewInMemoryStorage(capacity int, logger *zap.Logger) *InMemoryStorage {
	if capacity <= 0 {
		capacity = 1000 // Default capacity if an invalid value is provided
	}
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed to initialize zap logger: " + err.Error())
		}
	}
	return &InMemoryStorage{
		links:    make(map[string]types.ShortLink),
		capacity: capacity,
		logger:   logger,
	}
}

// PutIfAbsent stores link unless its id is already taken.
// The existence check and the insert share one write lock.
func (s *InMemoryStorage) PutIfAbsent(ctx context.Context, link types.ShortLink) (types.ShortLink, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("PutIfAbsent operation cancelled", zap.String("id", link.ID))
		return types.ShortLink{}, ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, exists := s.links[link.ID]; exists {
			s.logger.Warn("Attempt to create duplicate id", zap.String("id", link.ID))
			return types.ShortLink{}, ErrIDExists
		}
		if s.count >= s.capacity {
			s.logger.Error("Storage capacity reached. Cannot create short link", zap.String("id", link.ID))
			return types.ShortLink{}, ErrStorageCapacityReached
		}

		s.links[link.ID] = link
		s.count++
		s.logger.Info("Short link created successfully",
			zap.String("id", link.ID),
			zap.String("originalURL", link.OriginalURL),
			zap.Time("createdAt", link.CreatedAt))
		return link, nil
	}
}

// Get retrieves the ShortLink stored under id.
func (s *InMemoryStorage) Get(ctx context.Context, id string) (types.ShortLink, bool, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("Get operation cancelled", zap.String("id", id))
		return types.ShortLink{}, false, ctx.Err()
	default:
		s.mu.RLock()
		defer s.mu.RUnlock()

		link, exists := s.links[id]
		if !exists {
			return types.ShortLink{}, false, nil
		}
		s.logger.Debug("Short link retrieved successfully",
			zap.String("id", id),
			zap.String("originalURL", link.OriginalURL))
		return link, true, nil
	}
}

// Len returns the number of stored links.
func (s *InMemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
