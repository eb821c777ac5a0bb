package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-shortlink/config"
	"go-shortlink/storage"
	"go-shortlink/storage/mocks"
	"go-shortlink/types"
	"go-shortlink/urlgen"
	genmocks "go-shortlink/urlgen/mocks"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 0
	return cfg
}

func linkWithID(id string) interface{} {
	return mock.MatchedBy(func(link types.ShortLink) bool { return link.ID == id })
}

func TestNewLinkService(t *testing.T) {
	store := new(mocks.MockStorage)
	gen := new(genmocks.MockGenerator)

	_, err := NewLinkService(nil, gen, testConfig(), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidDependency)

	_, err = NewLinkService(store, nil, testConfig(), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidDependency)

	_, err = NewLinkService(store, gen, nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidDependency)

	service, err := NewLinkService(store, gen, testConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, service)
}

func TestCreateShortLink(t *testing.T) {
	ctx := context.Background()
	originalURL := "https://example.com/very/long/path?x=1"

	t.Run("Success", func(t *testing.T) {
		store := new(mocks.MockStorage)
		gen := new(genmocks.MockGenerator)
		service, err := NewLinkService(store, gen, testConfig(), zap.NewNop())
		require.NoError(t, err)

		gen.On("Generate", 6).Return("aB3dE9").Once()
		store.On("PutIfAbsent", ctx, linkWithID("aB3dE9")).Return(func(ctx context.Context, link types.ShortLink) types.ShortLink {
			return link
		}, nil).Once()

		link, err := service.CreateShortLink(ctx, originalURL)

		require.NoError(t, err)
		assert.Equal(t, "aB3dE9", link.ID)
		assert.Equal(t, originalURL, link.OriginalURL)
		assert.Equal(t, "https://example.com/aB3dE9", link.ShortURL)
		assert.Equal(t, 0, link.VisitCount)
		assert.False(t, link.CreatedAt.IsZero())
		gen.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("Retries After Conflicts", func(t *testing.T) {
		const conflicts = 3
		store := new(mocks.MockStorage)
		gen := new(genmocks.MockGenerator)
		service, err := NewLinkService(store, gen, testConfig(), zap.NewNop())
		require.NoError(t, err)

		for i := 0; i < conflicts; i++ {
			id := fmt.Sprintf("taken%d", i)
			gen.On("Generate", 6).Return(id).Once()
			store.On("PutIfAbsent", ctx, linkWithID(id)).Return(types.ShortLink{}, storage.ErrIDExists).Once()
		}
		gen.On("Generate", 6).Return("free00").Once()
		store.On("PutIfAbsent", ctx, linkWithID("free00")).Return(types.ShortLink{ID: "free00", OriginalURL: originalURL}, nil).Once()

		link, err := service.CreateShortLink(ctx, originalURL)

		require.NoError(t, err)
		assert.Equal(t, "free00", link.ID)
		gen.AssertNumberOfCalls(t, "Generate", conflicts+1)
		store.AssertNumberOfCalls(t, "PutIfAbsent", conflicts+1)

		seen := make(map[string]bool)
		for _, call := range store.Calls {
			id := call.Arguments.Get(1).(types.ShortLink).ID
			assert.False(t, seen[id], "id %q reused after conflict", id)
			seen[id] = true
		}
	})

	t.Run("Retries Exhausted", func(t *testing.T) {
		store := new(mocks.MockStorage)
		gen := new(genmocks.MockGenerator)
		cfg := testConfig()
		cfg.MaxRetries = 3
		service, err := NewLinkService(store, gen, cfg, zap.NewNop())
		require.NoError(t, err)

		gen.On("Generate", 6).Return("always")
		store.On("PutIfAbsent", ctx, mock.Anything).Return(types.ShortLink{}, storage.ErrIDExists)

		_, err = service.CreateShortLink(ctx, originalURL)

		assert.ErrorIs(t, err, ErrRetriesExhausted)
		gen.AssertNumberOfCalls(t, "Generate", 3)
		store.AssertNumberOfCalls(t, "PutIfAbsent", 3)
	})

	t.Run("Invalid URL", func(t *testing.T) {
		for _, input := range []string{"not a url", "", "example.com", "/relative"} {
			store := new(mocks.MockStorage)
			gen := new(genmocks.MockGenerator)
			service, err := NewLinkService(store, gen, testConfig(), zap.NewNop())
			require.NoError(t, err)

			_, err = service.CreateShortLink(ctx, input)

			assert.ErrorIs(t, err, ErrInvalidURL, "input %q", input)
			store.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
			gen.AssertNotCalled(t, "Generate", mock.Anything)
		}
	})

	t.Run("Store Unavailable", func(t *testing.T) {
		store := new(mocks.MockStorage)
		gen := new(genmocks.MockGenerator)
		service, err := NewLinkService(store, gen, testConfig(), zap.NewNop())
		require.NoError(t, err)

		gen.On("Generate", 6).Return("abc123").Once()
		store.On("PutIfAbsent", ctx, mock.Anything).
			Return(types.ShortLink{}, fmt.Errorf("%w: timeout", storage.ErrUnavailable)).Once()

		_, err = service.CreateShortLink(ctx, originalURL)

		assert.ErrorIs(t, err, ErrStoreUnavailable)
		store.AssertNumberOfCalls(t, "PutIfAbsent", 1)
	})

	t.Run("Storage Capacity Reached", func(t *testing.T) {
		store := new(mocks.MockStorage)
		gen := new(genmocks.MockGenerator)
		service, err := NewLinkService(store, gen, testConfig(), zap.NewNop())
		require.NoError(t, err)

		gen.On("Generate", 6).Return("abc123").Once()
		store.On("PutIfAbsent", ctx, mock.Anything).Return(types.ShortLink{}, storage.ErrStorageCapacityReached).Once()

		_, err = service.CreateShortLink(ctx, originalURL)

		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("Context Cancelled During Backoff", func(t *testing.T) {
		store := new(mocks.MockStorage)
		gen := new(genmocks.MockGenerator)
		cfg := testConfig()
		cfg.RetryBackoff = time.Hour
		service, err := NewLinkService(store, gen, cfg, zap.NewNop())
		require.NoError(t, err)

		cancelCtx, cancel := context.WithCancel(ctx)
		gen.On("Generate", 6).Return("taken0").Once()
		store.On("PutIfAbsent", cancelCtx, mock.Anything).Run(func(mock.Arguments) {
			cancel()
		}).Return(types.ShortLink{}, storage.ErrIDExists).Once()

		_, err = service.CreateShortLink(cancelCtx, originalURL)

		assert.ErrorIs(t, err, context.Canceled)
		gen.AssertNumberOfCalls(t, "Generate", 1)
	})

	t.Run("Fixed Base", func(t *testing.T) {
		store := new(mocks.MockStorage)
		gen := new(genmocks.MockGenerator)
		cfg := testConfig()
		cfg.ShortURLMode = types.ShortURLModeFixedBase
		cfg.BaseURL = "https://sho.rt/"
		service, err := NewLinkService(store, gen, cfg, zap.NewNop())
		require.NoError(t, err)

		gen.On("Generate", 6).Return("xYz789").Once()
		store.On("PutIfAbsent", ctx, mock.Anything).Return(func(ctx context.Context, link types.ShortLink) types.ShortLink {
			return link
		}, nil).Once()

		link, err := service.CreateShortLink(ctx, originalURL)

		require.NoError(t, err)
		assert.Equal(t, "https://sho.rt/xYz789", link.ShortURL)
	})
}

func TestCreateShortLinkEndToEnd(t *testing.T) {
	store := storage.NewInMemoryStorage(1000, zap.NewNop())
	service, err := NewLinkService(store, urlgen.New(), testConfig(), zap.NewNop())
	require.NoError(t, err)

	input := "https://example.com/very/long/path?x=1"
	link, err := service.CreateShortLink(context.Background(), input)

	require.NoError(t, err)
	assert.Len(t, link.ID, 6)
	assert.Equal(t, input, link.OriginalURL)
	assert.True(t, strings.HasSuffix(link.ShortURL, "/"+link.ID))

	stored, found, err := service.GetShortLink(context.Background(), link.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, link, stored)
}

func TestCreateShortLinkTimestampSurvivesStore(t *testing.T) {
	store, err := storage.NewSQLStorage(context.Background(), ":memory:", "short_links", types.VisitsCounter, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	service, err := NewLinkService(store, urlgen.New(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	service.(*linkService).now = func() time.Time {
		return time.Date(2026, 10, 18, 9, 47, 51, 591946236, time.UTC)
	}

	link, err := service.CreateShortLink(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 9, 47, 51, 591000000, time.UTC), link.CreatedAt)

	stored, found, err := service.GetShortLink(context.Background(), link.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, link.CreatedAt.Equal(stored.CreatedAt), "created %s, stored %s", link.CreatedAt, stored.CreatedAt)
}

func TestCreateShortLinkConcurrent(t *testing.T) {
	store := storage.NewInMemoryStorage(10000, zap.NewNop())
	cfg := testConfig()
	cfg.MaxRetries = 20
	service, err := NewLinkService(store, urlgen.New(), cfg, zap.NewNop())
	require.NoError(t, err)

	const requests = 200
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]bool)
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link, err := service.CreateShortLink(context.Background(), fmt.Sprintf("https://example.com/%d", i))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, ids[link.ID], "id %q handed out twice", link.ID)
			ids[link.ID] = true
		}(i)
	}
	wg.Wait()

	assert.Len(t, ids, requests)
	assert.Equal(t, requests, store.Len())
}

func TestGetShortLink(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		storeLink     types.ShortLink
		storeFound    bool
		storeErr      error
		expectedFound bool
		expectedErr   error
	}{
		{
			name:          "Found",
			storeLink:     types.ShortLink{ID: "abc123", OriginalURL: "https://example.com"},
			storeFound:    true,
			expectedFound: true,
		},
		{
			name:          "Not Found",
			expectedFound: false,
		},
		{
			name:        "Unavailable",
			storeErr:    fmt.Errorf("%w: timeout", storage.ErrUnavailable),
			expectedErr: ErrStoreUnavailable,
		},
		{
			name:        "Deadline",
			storeErr:    context.DeadlineExceeded,
			expectedErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockStorage)
			service, err := NewLinkService(store, new(genmocks.MockGenerator), testConfig(), zap.NewNop())
			require.NoError(t, err)

			store.On("Get", ctx, "abc123").Return(tt.storeLink, tt.storeFound, tt.storeErr).Once()

			link, found, err := service.GetShortLink(ctx, "abc123")

			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr), "expected %v, got %v", tt.expectedErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedFound, found)
			assert.Equal(t, tt.storeLink, link)
			store.AssertExpectations(t)
		})
	}
}
