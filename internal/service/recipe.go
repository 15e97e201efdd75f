package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recettes-ai/backend/internal/airtable"
	"github.com/recettes-ai/backend/internal/model"
	"github.com/recettes-ai/backend/pkg/logger"
)

const (
	listCacheTTL     = 5 * time.Minute
	listCacheGenKey  = "recipes:list:gen"
	createdAtField   = "dateCreation"
	storePageSize    = 100
	defaultPageLimit = 10
)

// RecipeQuery is a structured recipe search query.
type RecipeQuery struct {
	Search     string
	Type       string
	Difficulty string
	Allergies  []string
	Page       int
	Limit      int
}

// Pagination describes the position of a page within the full result set.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PaginatedRecipes is one page of recipes plus pagination metadata.
type PaginatedRecipes struct {
	Data       []model.Recipe `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// RecipeUpdate carries a partial update; nil fields are left untouched.
type RecipeUpdate struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Type         *string              `json:"type"`
	Difficulty   *string              `json:"difficulty"`
	PrepTime     *int                 `json:"prepTime"`
	CookTime     *int                 `json:"cookTime"`
	Servings     *int                 `json:"servings"`
	Ingredients  *string              `json:"ingredients"`
	Instructions *string              `json:"instructions"`
	Nutrition    *model.NutritionInfo `json:"nutrition"`
	Allergies    *[]string            `json:"allergies"`
	ImageURL     *string              `json:"imageUrl"`
	IsFavorite   *bool                `json:"isFavorite"`
}

// RecipeService handles recipe operations against the record store.
type RecipeService struct {
	store RecordStore
	table string
	cache *redis.Client
	log   *logger.Logger
}

// NewRecipeService creates a new RecipeService instance. The cache client may
// be nil, in which case every read goes straight to the store.
func NewRecipeService(store RecordStore, table string, cache *redis.Client, log *logger.Logger) *RecipeService {
	if log == nil {
		log = logger.NewNop()
	}
	return &RecipeService{
		store: store,
		table: table,
		cache: cache,
		log:   log,
	}
}

// BuildFilterFormula translates a structured query into the store's filter
// formula dialect. An empty string means no filter.
//
// Allergy exclusion matches by substring against the joined allergen list,
// so "noix" also excludes "noix de coco". The stored vocabulary is curated,
// and over-excluding is the safe direction for allergy filtering, so the
// substring semantics is kept on purpose.
func BuildFilterFormula(query RecipeQuery) string {
	var filters []string

	if query.Search != "" {
		term := escapeFormulaString(strings.ToLower(query.Search))
		filters = append(filters, fmt.Sprintf(
			`OR(SEARCH("%s", LOWER({titre})), SEARCH("%s", LOWER({description})), SEARCH("%s", LOWER({ingredients})))`,
			term, term, term,
		))
	}

	if query.Type != "" {
		filters = append(filters, fmt.Sprintf(`{type} = "%s"`, escapeFormulaString(query.Type)))
	}

	if query.Difficulty != "" {
		filters = append(filters, fmt.Sprintf(`{difficulté} = "%s"`, escapeFormulaString(query.Difficulty)))
	}

	if len(query.Allergies) > 0 {
		allergyFilters := make([]string, 0, len(query.Allergies))
		for _, allergy := range query.Allergies {
			allergyFilters = append(allergyFilters, fmt.Sprintf(
				`NOT(FIND("%s", ARRAYJOIN({allergenes}, ",")))`,
				escapeFormulaString(allergy),
			))
		}
		filters = append(filters, strings.Join(allergyFilters, " AND "))
	}

	if len(filters) == 0 {
		return ""
	}
	return fmt.Sprintf("AND(%s)", strings.Join(filters, ", "))
}

func escapeFormulaString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Paginate slices the full ordered result set for the requested page.
// An out-of-range page yields empty data with the metadata still correct.
func Paginate(recipes []model.Recipe, page, limit int) *PaginatedRecipes {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}

	total := len(recipes)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	data := []model.Recipe{}
	if start < total {
		end := start + limit
		if end > total {
			end = total
		}
		data = recipes[start:end]
	}

	return &PaginatedRecipes{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// List fetches the full filtered set from the store, newest first, and
// paginates it in memory. The store holds small result sets; this is a known
// scalability ceiling, not a bug.
func (s *RecipeService) List(ctx context.Context, query RecipeQuery) (*PaginatedRecipes, error) {
	cacheKey := s.listCacheKey(ctx, query)
	if cached := s.cachedList(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	formula := BuildFilterFormula(query)
	records, err := s.store.Select(ctx, s.table, airtable.SelectOptions{
		FilterByFormula: formula,
		SortField:       createdAtField,
		SortDirection:   "desc",
		PageSize:        storePageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	recipes := make([]model.Recipe, 0, len(records))
	for i := range records {
		recipes = append(recipes, model.RecipeFromRecord(&records[i]))
	}

	result := Paginate(recipes, query.Page, query.Limit)
	s.storeCachedList(ctx, cacheKey, result)
	return result, nil
}

// Get retrieves a single recipe by ID.
func (s *RecipeService) Get(ctx context.Context, id string) (*model.Recipe, error) {
	record, err := s.store.Find(ctx, s.table, id)
	if err != nil {
		if errors.Is(err, airtable.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	recipe := model.RecipeFromRecord(record)
	return &recipe, nil
}

// Create persists a generated recipe. Select fields the store may reject
// (type, difficulty) get defaults; if the typed create still fails, a minimal
// create without them is attempted so a vocabulary mismatch never loses the
// recipe.
func (s *RecipeService) Create(ctx context.Context, generated *GeneratedRecipe) (*model.Recipe, error) {
	nutritionJSON, err := json.Marshal(generated.Nutrition)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nutrition: %w", err)
	}

	recipeType := generated.Type
	if recipeType == "" {
		recipeType = "Entrée"
	}
	difficulty := generated.Difficulty
	if difficulty == "" {
		difficulty = "Facile"
	}
	servings := generated.Servings
	if servings == 0 {
		servings = 2
	}

	fields := map[string]interface{}{
		"titre":            generated.Title,
		"description":      generated.Description,
		"type":             recipeType,
		"difficulté":       difficulty,
		"tempsPreparation": generated.PrepTime,
		"tempsCuisson":     generated.CookTime,
		"portions":         servings,
		"ingredients":      generated.Ingredients.String(),
		"instructions":     generated.Instructions.String(),
		"nutrition":        string(nutritionJSON),
		"dateCreation":     time.Now().Format("2006-01-02"),
		"estFavori":        false,
	}

	record, err := s.store.Create(ctx, s.table, fields)
	if err != nil {
		s.log.Warnw("typed create rejected, retrying without select fields", "error", err)
		delete(fields, "type")
		delete(fields, "difficulté")
		if fields["titre"] == "" {
			fields["titre"] = "Recette générée"
		}
		record, err = s.store.Create(ctx, s.table, fields)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	}

	s.invalidateListCache(ctx)
	recipe := model.RecipeFromRecord(record)
	return &recipe, nil
}

// Update applies a partial update to a recipe.
func (s *RecipeService) Update(ctx context.Context, id string, updates RecipeUpdate) (*model.Recipe, error) {
	fields := updates.fields()
	record, err := s.store.Update(ctx, s.table, id, fields)
	if err != nil {
		if errors.Is(err, airtable.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	s.invalidateListCache(ctx)
	recipe := model.RecipeFromRecord(record)
	return &recipe, nil
}

// Delete removes a recipe permanently. Deletion is immediate and irreversible.
func (s *RecipeService) Delete(ctx context.Context, id string) error {
	if err := s.store.Destroy(ctx, s.table, id); err != nil {
		if errors.Is(err, airtable.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	s.invalidateListCache(ctx)
	return nil
}

// ToggleFavorite flips the favorite flag of a recipe.
func (s *RecipeService) ToggleFavorite(ctx context.Context, id string) (*model.Recipe, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	toggled := !current.IsFavorite
	return s.Update(ctx, id, RecipeUpdate{IsFavorite: &toggled})
}

func (u RecipeUpdate) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if u.Title != nil {
		fields["titre"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Type != nil {
		fields["type"] = *u.Type
	}
	if u.Difficulty != nil {
		fields["difficulté"] = *u.Difficulty
	}
	if u.PrepTime != nil {
		fields["tempsPreparation"] = *u.PrepTime
	}
	if u.CookTime != nil {
		fields["tempsCuisson"] = *u.CookTime
	}
	if u.Servings != nil {
		fields["portions"] = *u.Servings
	}
	if u.Ingredients != nil {
		fields["ingredients"] = *u.Ingredients
	}
	if u.Instructions != nil {
		fields["instructions"] = *u.Instructions
	}
	if u.Nutrition != nil {
		if data, err := json.Marshal(u.Nutrition); err == nil {
			fields["nutrition"] = string(data)
		}
	}
	if u.Allergies != nil {
		fields["allergenes"] = *u.Allergies
	}
	if u.ImageURL != nil {
		fields["imageUrl"] = *u.ImageURL
	}
	if u.IsFavorite != nil {
		fields["estFavori"] = *u.IsFavorite
	}
	return fields
}

// listCacheKey derives a cache key from the query plus a generation counter.
// Invalidation bumps the counter instead of scanning for keys, so stale
// entries simply age out of Redis.
func (s *RecipeService) listCacheKey(ctx context.Context, query RecipeQuery) string {
	if s.cache == nil {
		return ""
	}
	gen, err := s.cache.Get(ctx, listCacheGenKey).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("recipes:list:%d:%s:%s:%s:%s:%d:%d",
		gen, query.Search, query.Type, query.Difficulty,
		strings.Join(query.Allergies, ","), query.Page, query.Limit)
}

func (s *RecipeService) cachedList(ctx context.Context, key string) *PaginatedRecipes {
	if s.cache == nil || key == "" {
		return nil
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var result PaginatedRecipes
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *RecipeService) storeCachedList(ctx context.Context, key string, result *PaginatedRecipes) {
	if s.cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, listCacheTTL).Err(); err != nil {
		s.log.Debugw("failed to cache recipe list", "error", err)
	}
}

func (s *RecipeService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, listCacheGenKey).Err(); err != nil {
		s.log.Debugw("failed to invalidate recipe list cache", "error", err)
	}
}
