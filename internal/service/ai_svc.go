package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gorm.io/datatypes"

	"gmc_dev_v1_202608/internal/api/dto"
	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
)

// 标题长度上限，Google 超过此长度会截断
const TitleMaxLength = 150

// Anthropic API
const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
	anthropicModel       = "claude-sonnet-4-20250514"
	anthropicMaxTokens   = 1024
)

// titleOptimizationPrompt 标题优化提示词模板
// 要求模型只回 JSON，解析时仍然兜底清洗 markdown 代码块
const titleOptimizationPrompt = `Tu es un expert en optimisation de titres de produits pour Google Shopping. Ton objectif est de maximiser le taux de clic (CTR) tout en respectant les bonnes pratiques Google.

## Contexte du produit

Titre actuel: {title}
Description: {description}
Prix: {price} {currency}
Marque: {brand}
Catégorie Google: {googleCategory}
Catégorie marchand: {productType}
GTIN: {gtin}
État: {condition}

## Métriques actuelles (14 derniers jours)

- Clics gratuits: {freeClicks}
- Clics payants: {adsClicks}
- Impressions totales: {totalImpressions}
- CTR estimé: {ctr}%

## Règles d'optimisation

1. **Structure optimale**: [Marque] + [Nom produit] + [Attributs clés] + [Différenciateur]
2. **Longueur**: Entre 70 et 150 caractères (Google tronque au-delà)
3. **Mots-clés**: Placer les mots-clés les plus importants en début de titre
4. **Attributs à inclure** (si pertinents): couleur, taille, matière, capacité, modèle
5. **À éviter**:
   - MAJUSCULES EXCESSIVES
   - Caractères spéciaux inutiles
   - Répétitions de mots
   - Termes promotionnels ("Promo", "Pas cher", "-50%")
   - Termes subjectifs ("Meilleur", "Top qualité")

## Format de réponse

Génère exactement 3 suggestions de titres optimisés. Réponds UNIQUEMENT avec un JSON valide, sans texte avant ou après:

{
  "suggestions": [
    {
      "title": "Le titre optimisé ici",
      "reasoning": "Explication courte de pourquoi ce titre est meilleur"
    },
    {
      "title": "Deuxième suggestion",
      "reasoning": "Explication"
    },
    {
      "title": "Troisième suggestion",
      "reasoning": "Explication"
    }
  ]
}`

// ==================== AIService 标题生成 ====================

// AIService 优先走 Anthropic，失败或未配置时降级到 Gemini
type AIService struct {
	anthropicKey string
	geminiKey    string
	geminiModel  string
	client       *resty.Client
	aiLogRepo    repository.AICallLogRepository
}

// NewAIService 创建 AI 服务
func NewAIService(anthropicKey, geminiKey, geminiModel string, aiLogRepo repository.AICallLogRepository) *AIService {
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}
	return &AIService{
		anthropicKey: anthropicKey,
		geminiKey:    geminiKey,
		geminiModel:  geminiModel,
		client:       resty.New().SetTimeout(60 * time.Second),
		aiLogRepo:    aiLogRepo,
	}
}

// Configured 是否至少配置了一个提供方
func (s *AIService) Configured() bool {
	return s.anthropicKey != "" || s.geminiKey != ""
}

// suggestionPayload AI 返回的 JSON 结构
type suggestionPayload struct {
	Suggestions []dto.TitleSuggestion `json:"suggestions"`
}

// GenerateResult 一次生成的完整结果
type GenerateResult struct {
	Suggestions  []dto.TitleSuggestion
	Provider     string
	ModelName    string
	Prompt       string
	InputTokens  int
	OutputTokens int
	DurationMs   int64
}

// GenerateTitleSuggestions 为商品生成 3 条标题建议，调用无论成败都落审计日志
func (s *AIService) GenerateTitleSuggestions(ctx context.Context, userID int64, product *model.Product) (*GenerateResult, error) {
	if !s.Configured() {
		return nil, ErrAINotConfigured
	}

	prompt := s.buildPrompt(product)
	start := time.Now()

	result, err := s.generate(ctx, prompt)
	durationMs := time.Since(start).Milliseconds()

	// 审计日志失败只打日志，不影响主流程
	callLog := &model.AICallLog{
		ProductID:  product.ID,
		UserID:     userID,
		PromptSent: prompt,
		DurationMs: durationMs,
	}
	if err != nil {
		callLog.Status = model.AICallStatusFailed
		callLog.ErrorMsg = err.Error()
		if result != nil {
			callLog.Provider = result.Provider
			callLog.ModelName = result.ModelName
		}
		if logErr := s.aiLogRepo.Create(ctx, callLog); logErr != nil {
			log.Printf("[AI] 记录失败调用日志出错: %v", logErr)
		}
		return nil, err
	}

	result.Prompt = prompt
	result.DurationMs = durationMs

	callLog.Status = model.AICallStatusSuccess
	callLog.Provider = result.Provider
	callLog.ModelName = result.ModelName
	callLog.InputTokens = result.InputTokens
	callLog.OutputTokens = result.OutputTokens
	if raw, jsonErr := json.Marshal(result.Suggestions); jsonErr == nil {
		callLog.Suggestions = datatypes.JSON(raw)
	}
	if logErr := s.aiLogRepo.Create(ctx, callLog); logErr != nil {
		log.Printf("[AI] 记录调用日志出错: %v", logErr)
	}

	return result, nil
}

// generate 先 Anthropic 后 Gemini
func (s *AIService) generate(ctx context.Context, prompt string) (*GenerateResult, error) {
	if s.anthropicKey != "" {
		result, err := s.callAnthropic(ctx, prompt)
		if err == nil {
			return result, nil
		}
		if s.geminiKey == "" {
			return &GenerateResult{Provider: model.AIProviderAnthropic, ModelName: anthropicModel}, err
		}
		log.Printf("[AI] Anthropic 调用失败，降级到 Gemini: %v", err)
	}
	return s.callGemini(ctx, prompt)
}

// ==================== Anthropic ====================

type anthropicResp struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *AIService) callAnthropic(ctx context.Context, prompt string) (*GenerateResult, error) {
	body := map[string]interface{}{
		"model":      anthropicModel,
		"max_tokens": anthropicMaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var result anthropicResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", s.anthropicKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(anthropicMessagesURL)
	if err != nil {
		return nil, fmt.Errorf("Anthropic 请求失败: %v", err)
	}
	if resp.IsError() {
		msg := resp.String()
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("Anthropic 返回 %d: %s", resp.StatusCode(), msg)
	}

	var rawText string
	for _, c := range result.Content {
		if c.Type == "text" {
			rawText = c.Text
			break
		}
	}
	if rawText == "" {
		return nil, fmt.Errorf("Anthropic 返回为空")
	}

	suggestions, err := parseSuggestions(rawText)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{
		Suggestions:  suggestions,
		Provider:     model.AIProviderAnthropic,
		ModelName:    anthropicModel,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
	}, nil
}

// ==================== Gemini ====================

func (s *AIService) callGemini(ctx context.Context, prompt string) (*GenerateResult, error) {
	if s.geminiKey == "" {
		return nil, ErrAINotConfigured
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(s.geminiKey))
	if err != nil {
		return nil, fmt.Errorf("Gemini 初始化失败: %v", err)
	}
	defer client.Close()

	modelAI := client.GenerativeModel(s.geminiModel)
	modelAI.ResponseMIMEType = "application/json"

	resp, err := modelAI.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return &GenerateResult{Provider: model.AIProviderGemini, ModelName: s.geminiModel},
			fmt.Errorf("Gemini 生成失败: %v", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &GenerateResult{Provider: model.AIProviderGemini, ModelName: s.geminiModel},
			fmt.Errorf("Gemini 返回为空")
	}

	var rawText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			rawText = string(txt)
			break
		}
	}

	suggestions, err := parseSuggestions(rawText)
	if err != nil {
		return &GenerateResult{Provider: model.AIProviderGemini, ModelName: s.geminiModel}, err
	}

	result := &GenerateResult{
		Suggestions: suggestions,
		Provider:    model.AIProviderGemini,
		ModelName:   s.geminiModel,
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// ==================== 用量统计 ====================

// Usage 查询用户在时间段内的 AI 用量汇总
func (s *AIService) Usage(ctx context.Context, userID int64, startTime, endTime time.Time) (*repository.AIUsageStats, error) {
	return s.aiLogRepo.GetUsageByUser(ctx, userID, startTime, endTime)
}

// DailyUsage 查询用户最近 days 天的每日 AI 用量
func (s *AIService) DailyUsage(ctx context.Context, userID int64, days int) ([]repository.DailyUsageStats, error) {
	if days <= 0 || days > 90 {
		days = 30
	}
	end := time.Now()
	return s.aiLogRepo.GetDailyUsage(ctx, userID, end.AddDate(0, 0, -days), end)
}

// ==================== 解析 ====================

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseSuggestions 解析模型输出
// 优先整体当 JSON 解析，失败时尝试提取 markdown 代码块
func parseSuggestions(rawText string) ([]dto.TitleSuggestion, error) {
	text := strings.TrimSpace(rawText)

	var payload suggestionPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		matches := fencedJSONRe.FindStringSubmatch(text)
		if len(matches) < 2 {
			return nil, fmt.Errorf("AI 返回解析失败: %v | 原始数据: %s", err, text)
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), &payload); err != nil {
			return nil, fmt.Errorf("AI 返回解析失败: %v | 原始数据: %s", err, text)
		}
	}
	if len(payload.Suggestions) == 0 {
		return nil, fmt.Errorf("AI 未返回任何标题建议")
	}

	// 超长标题直接截断到上限
	for i := range payload.Suggestions {
		title := strings.TrimSpace(payload.Suggestions[i].Title)
		if len([]rune(title)) > TitleMaxLength {
			title = string([]rune(title)[:TitleMaxLength])
		}
		payload.Suggestions[i].Title = title
	}
	return payload.Suggestions, nil
}

// ==================== Prompt 构建 ====================

// buildPrompt 填充提示词模板
func (s *AIService) buildPrompt(p *model.Product) string {
	totalClicks := p.FreeClicks14d + p.AdsClicks14d
	totalImpressions := p.FreeImpressions14d + p.AdsImpressions14d
	ctr := "0"
	if totalImpressions > 0 {
		ctr = fmt.Sprintf("%.2f", float64(totalClicks)/float64(totalImpressions)*100)
	}

	price := "Non renseigné"
	if p.PriceAmount > 0 {
		price = fmt.Sprintf("%.2f", p.PriceAmount)
	}
	currency := p.PriceCurrency
	if currency == "" {
		currency = "EUR"
	}

	replacer := strings.NewReplacer(
		"{title}", p.TitleCurrent,
		"{description}", orDefault(p.Description, "Non renseignée"),
		"{price}", price,
		"{currency}", currency,
		"{brand}", orDefault(p.Brand, "Non renseignée"),
		"{googleCategory}", orDefault(p.GoogleProductCategory, "Non renseignée"),
		"{productType}", orDefault(p.ProductType, "Non renseignée"),
		"{gtin}", orDefault(p.Gtin, "Non renseigné"),
		"{condition}", orDefault(p.Condition, "Non renseigné"),
		"{freeClicks}", fmt.Sprintf("%d", p.FreeClicks14d),
		"{adsClicks}", fmt.Sprintf("%d", p.AdsClicks14d),
		"{totalImpressions}", fmt.Sprintf("%d", totalImpressions),
		"{ctr}", ctr,
	)
	return replacer.Replace(titleOptimizationPrompt)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
