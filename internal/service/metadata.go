package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/recettes-ai/backend/internal/airtable"
	"github.com/recettes-ai/backend/internal/model"
	"github.com/recettes-ai/backend/pkg/logger"
)

const metadataCacheTTL = 30 * time.Minute

// MetadataTables names the three metadata tables in the record store.
type MetadataTables struct {
	Allergens   string
	DishTypes   string
	Ingredients string
}

// MetadataService serves the allergen, dish type, and ingredient collections.
type MetadataService struct {
	store  RecordStore
	tables MetadataTables
	cache  *redis.Client
	log    *logger.Logger
}

// NewMetadataService creates a new MetadataService instance. The cache client
// may be nil.
func NewMetadataService(store RecordStore, tables MetadataTables, cache *redis.Client, log *logger.Logger) *MetadataService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MetadataService{
		store:  store,
		tables: tables,
		cache:  cache,
		log:    log,
	}
}

// Allergens returns every allergen in the metadata table.
func (s *MetadataService) Allergens(ctx context.Context) ([]model.Allergen, error) {
	var allergens []model.Allergen
	if s.cachedGet(ctx, "metadata:allergens", &allergens) {
		return allergens, nil
	}

	records, err := s.store.Select(ctx, s.tables.Allergens, airtable.SelectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	allergens = make([]model.Allergen, 0, len(records))
	for i := range records {
		allergens = append(allergens, model.AllergenFromRecord(&records[i]))
	}

	s.cachedSet(ctx, "metadata:allergens", allergens)
	return allergens, nil
}

// DishTypes returns every dish type in the metadata table.
func (s *MetadataService) DishTypes(ctx context.Context) ([]model.DishType, error) {
	var dishTypes []model.DishType
	if s.cachedGet(ctx, "metadata:dish_types", &dishTypes) {
		return dishTypes, nil
	}

	records, err := s.store.Select(ctx, s.tables.DishTypes, airtable.SelectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	dishTypes = make([]model.DishType, 0, len(records))
	for i := range records {
		dishTypes = append(dishTypes, model.DishTypeFromRecord(&records[i]))
	}

	s.cachedSet(ctx, "metadata:dish_types", dishTypes)
	return dishTypes, nil
}

// Ingredients returns every ingredient in the metadata table.
func (s *MetadataService) Ingredients(ctx context.Context) ([]model.Ingredient, error) {
	var ingredients []model.Ingredient
	if s.cachedGet(ctx, "metadata:ingredients", &ingredients) {
		return ingredients, nil
	}

	records, err := s.store.Select(ctx, s.tables.Ingredients, airtable.SelectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	ingredients = make([]model.Ingredient, 0, len(records))
	for i := range records {
		ingredients = append(ingredients, model.IngredientFromRecord(&records[i]))
	}

	s.cachedSet(ctx, "metadata:ingredients", ingredients)
	return ingredients, nil
}

// All fetches the three collections concurrently and waits for all of them.
// Any single failure fails the whole response.
func (s *MetadataService) All(ctx context.Context) (*model.Metadata, error) {
	var metadata model.Metadata

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		allergens, err := s.Allergens(gctx)
		if err != nil {
			return err
		}
		metadata.Allergens = allergens
		return nil
	})
	g.Go(func() error {
		dishTypes, err := s.DishTypes(gctx)
		if err != nil {
			return err
		}
		metadata.DishTypes = dishTypes
		return nil
	})
	g.Go(func() error {
		ingredients, err := s.Ingredients(gctx)
		if err != nil {
			return err
		}
		metadata.Ingredients = ingredients
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// InvalidateCache drops the cached collections so the next read hits the
// store. Useful after editing the metadata tables directly.
func (s *MetadataService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, "metadata:allergens", "metadata:dish_types", "metadata:ingredients").Err()
}

func (s *MetadataService) cachedGet(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *MetadataService) cachedSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, metadataCacheTTL).Err(); err != nil {
		s.log.Debugw("failed to cache metadata", "key", key, "error", err)
	}
}
