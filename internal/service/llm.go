package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/recettes-ai/backend/internal/model"
	"github.com/recettes-ai/backend/pkg/logger"
)

// GenerateRequest describes a recipe generation request.
type GenerateRequest struct {
	Ingredients []string `json:"ingredients"`
	Servings    int      `json:"servings"`
	Allergies   []string `json:"allergies"`
	Type        string   `json:"type,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// FlexText is a string that tolerates being sent as a JSON array. The prompt
// instructs the model to return plain newline-joined strings for ingredients
// and instructions, but models still occasionally return arrays; those are
// joined with newlines instead of failing the whole generation.
type FlexText string

// UnmarshalJSON accepts a string, an array of strings, or an array of
// {name, quantity} objects.
func (f *FlexText) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*f = FlexText(str)
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("invalid text format")
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		var line string
		if err := json.Unmarshal(item, &line); err == nil {
			lines = append(lines, line)
			continue
		}
		var obj struct {
			Name     string `json:"name"`
			Quantity string `json:"quantity"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Name != "" {
			lines = append(lines, strings.TrimSpace(obj.Quantity+" "+obj.Name))
			continue
		}
		lines = append(lines, string(item))
	}
	*f = FlexText(strings.Join(lines, "\n"))
	return nil
}

// String returns the underlying text.
func (f FlexText) String() string {
	return string(f)
}

// GeneratedRecipe is the structured payload parsed out of a generation
// response. Beyond the three required fields, values are accepted as-is: the
// prompt's instructions are the only schema enforcement at this layer.
type GeneratedRecipe struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Type         string              `json:"type"`
	Difficulty   string              `json:"difficulty"`
	PrepTime     int                 `json:"prepTime"`
	CookTime     int                 `json:"cookTime"`
	Servings     int                 `json:"servings"`
	Ingredients  FlexText            `json:"ingredients"`
	Instructions FlexText            `json:"instructions"`
	Nutrition    model.NutritionInfo `json:"nutrition"`
}

// LLMService handles interactions with the Ollama generation endpoint.
type LLMService struct {
	baseURL  string
	llmModel string
	client   *http.Client
	limiter  *rate.Limiter
	log      *logger.Logger
}

// NewLLMService creates a new LLMService instance. The limiter bounds the
// pressure this process puts on the generation endpoint; generation calls can
// take tens of seconds, so the allowed rate is deliberately low.
func NewLLMService(baseURL, llmModel string, log *logger.Logger) *LLMService {
	if log == nil {
		log = logger.NewNop()
	}
	return &LLMService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		llmModel: llmModel,
		client:   &http.Client{Timeout: 120 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 3),
		log:      log,
	}
}

// GenerateRecipe builds a prompt, calls the generation endpoint, and parses
// the embedded JSON into a validated recipe. There is no retry at this layer;
// a failed attempt must be re-initiated by the caller.
func (s *LLMService) GenerateRecipe(ctx context.Context, req GenerateRequest) (*GeneratedRecipe, error) {
	prompt := recipePrompt(req)

	response, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var recipe GeneratedRecipe
	if err := json.Unmarshal([]byte(payload), &recipe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}

	if recipe.Title == "" || recipe.Ingredients == "" || recipe.Instructions == "" {
		return nil, ErrGenerationIncomplete
	}

	return &recipe, nil
}

// AnalyzeNutrition estimates nutrition values for a free-text ingredient
// list. The parsed object is passed through without further checks.
func (s *LLMService) AnalyzeNutrition(ctx context.Context, ingredients string, servings int) (*model.NutritionInfo, error) {
	prompt := nutritionPrompt(ingredients, servings)

	response, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var nutrition model.NutritionInfo
	if err := json.Unmarshal([]byte(payload), &nutrition); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}

	return &nutrition, nil
}

// generate performs a single synchronous call to the Ollama generate API.
func (s *LLMService) generate(ctx context.Context, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"model":  s.llmModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			s.log.Errorw("generation request failed", "status", resp.StatusCode, "body", string(body))
		}
		return "", fmt.Errorf("%w: generation endpoint returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return result.Response, nil
}

// extractJSON locates the JSON payload embedded in a free-form response by
// scanning from the first '{' to the last '}'.
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrGenerationFormat
	}

	return trimmed[start : end+1], nil
}

func recipePrompt(req GenerateRequest) string {
	var b strings.Builder

	b.WriteString("Tu es un chef cuisinier expert. Crée une recette détaillée en français avec les contraintes suivantes:\n\n")
	fmt.Fprintf(&b, "Ingrédients disponibles: %s\n", strings.Join(req.Ingredients, ", "))
	fmt.Fprintf(&b, "Nombre de portions: %d\n", req.Servings)

	if len(req.Allergies) > 0 {
		fmt.Fprintf(&b, "IMPORTANT: Cette recette ne doit contenir AUCUN de ces allergènes: %s.\n", strings.Join(req.Allergies, ", "))
	}
	if req.Type != "" {
		fmt.Fprintf(&b, "Type de plat: %s\n", req.Type)
	}
	if req.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulté: %s\n", req.Difficulty)
	}

	fmt.Fprintf(&b, `
Réponds UNIQUEMENT avec un JSON valide contenant exactement ces champs:
{
  "title": "Titre de la recette",
  "description": "Description courte et appétissante",
  "type": "Entrée|Plat principal|Dessert|Boisson|Accompagnement",
  "difficulty": "Facile|Moyen|Difficile",
  "prepTime": nombre_en_minutes,
  "cookTime": nombre_en_minutes,
  "servings": %d,
  "ingredients": "Liste des ingrédients sous forme de TEXTE SIMPLE, par exemple: 2 tomates\n1 cuillère à soupe d'huile d'olive\n100g de basilic frais",
  "instructions": "Instructions étape par étape sous forme de TEXTE SIMPLE, par exemple: Étape 1: Lavez les tomates\nÉtape 2: Chauffez l'huile\nÉtape 3: Faites cuire 10 minutes",
  "nutrition": {
    "calories": nombre_calories_par_portion,
    "protein": grammes_proteines,
    "carbs": grammes_glucides,
    "fat": grammes_lipides,
    "vitamins": {"a": pourcentage_AJR, "c": pourcentage_AJR, "d": pourcentage_AJR},
    "minerals": {"calcium": milligrammes, "iron": milligrammes, "magnesium": milligrammes}
  }
}

RÈGLES ABSOLUES:
- Le champ "type" doit être EXACTEMENT l'une de ces valeurs: "Entrée", "Plat principal", "Dessert", "Boisson", "Accompagnement"
- Le champ "difficulty" doit être EXACTEMENT l'une de ces valeurs: "Facile", "Moyen", "Difficile"
- Les champs "ingredients" et "instructions" doivent être des CHAÎNES DE CARACTÈRES simples, PAS des tableaux ou objets
- Respecte exactement la casse (majuscules/minuscules)
- Ne mets JAMAIS d'objets ou de tableaux dans les champs ingredients et instructions

La recette doit être créative, savoureuse et utiliser principalement les ingrédients fournis.
`, req.Servings)

	return b.String()
}

func nutritionPrompt(ingredients string, servings int) string {
	return fmt.Sprintf(`Tu es un nutritionniste expert. Analyse ces ingrédients et calcule les valeurs nutritionnelles pour %d portion(s):

Ingrédients: %s

Réponds UNIQUEMENT avec un JSON valide:
{
  "calories": nombre_calories_par_portion,
  "protein": grammes_proteines_par_portion,
  "carbs": grammes_glucides_par_portion,
  "fat": grammes_lipides_par_portion,
  "vitamins": {"a": pourcentage_AJR_vitamine_A, "c": pourcentage_AJR_vitamine_C, "d": pourcentage_AJR_vitamine_D},
  "minerals": {"calcium": milligrammes_calcium, "iron": milligrammes_fer, "magnesium": milligrammes_magnesium}
}

Base tes calculs sur des données nutritionnelles réelles et précises.
`, servings, ingredients)
}
