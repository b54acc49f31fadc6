package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/contaluz/contaluz/pkg/common"
	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/tariff"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Gemini implements Advisor with the Gemini generateContent API. Every request
// asks for JSON matching a response schema.
type Gemini struct {
	apiURL   string
	apiKey   string
	model    string
	interval time.Duration
	timeout  time.Duration

	client  *genai.Client
	limiter *rate.Limiter
}

var _ Advisor = (*Gemini)(nil)

func configuredGemini() *Gemini {
	g := &Gemini{}
	apiKey := lflag.String("advisor-api-key", "", "API key for the generative text service (empty disables it)")
	apiURL := lflag.String("advisor-api-url", "https://generativelanguage.googleapis.com/", "Base URL of the generative text service")
	model := lflag.String("advisor-model", "gemini-3-flash-preview", "Model used for advice")
	interval := lflag.Duration("advisor-rate", time.Second, "Minimum interval between requests to the generative text service")
	timeout := lflag.Duration("advisor-timeout", 30*time.Second, "Timeout of each request to the generative text service")

	lflag.Do(func() {
		g.apiKey = *apiKey
		g.apiURL = *apiURL
		g.model = *model
		g.interval = *interval
		g.timeout = *timeout
	})

	return g
}

// NewGemini creates a client against apiURL.
func NewGemini(ctx context.Context, apiURL, apiKey, model string, interval time.Duration) (*Gemini, error) {
	g := &Gemini{
		apiURL:   apiURL,
		apiKey:   apiKey,
		model:    model,
		interval: interval,
		timeout:  30 * time.Second,
	}
	if err := g.Init(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate ensures the configuration is valid.
func (g *Gemini) Validate() error {
	if g.apiURL == "" {
		return fmt.Errorf("advisor-api-url is required")
	}
	if _, err := url.Parse(g.apiURL); err != nil {
		return fmt.Errorf("failed to parse advisor url (%s): %w", g.apiURL, err)
	}
	if g.model == "" {
		return fmt.Errorf("advisor-model is required")
	}
	return nil
}

// Init creates the genai client and the request limiter.
func (g *Gemini) Init(ctx context.Context) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: common.HTTPClient(g.timeout),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    g.apiURL,
			APIVersion: geminiAPIVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	g.client = client

	limit := rate.Inf
	if g.interval > 0 {
		limit = rate.Every(g.interval)
	}
	g.limiter = rate.NewLimiter(limit, 1)
	return nil
}

const geminiAPIVersion = "v1beta"

var (
	stringSchema = &genai.Schema{Type: genai.TypeString}
	stringList   = &genai.Schema{Type: genai.TypeArray, Items: stringSchema}
)

// generate sends one request and decodes the JSON text of the first candidate
// into out.
func (g *Gemini) generate(ctx context.Context, parts []*genai.Part, respSchema *genai.Schema, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("advisor rate limit: %w", err)
	}

	log.Ctx(ctx).DebugContext(ctx, "calling advisor", slog.String("model", g.model))
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   respSchema,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to call advisor: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return fmt.Errorf("advisor returned no candidates")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode advisor json: %w", err)
	}
	return nil
}

func describeAppliances(appliances []types.Appliance) string {
	list := make([]string, 0, len(appliances))
	for _, a := range appliances {
		list = append(list, fmt.Sprintf("%dx %s (%gW cada, %gh/dia cada)", a.Quantity, a.Name, a.PowerWatts, a.HoursPerDay))
	}
	return strings.Join(list, ", ")
}

func totalDailyKWh(appliances []types.Appliance) float64 {
	var total float64
	for _, a := range appliances {
		total += a.DailyKWh()
	}
	return total
}

// LocationSuggestions implements Advisor.
func (g *Gemini) LocationSuggestions(ctx context.Context, q LocationQuery) ([]string, error) {
	var kind string
	switch q.Level {
	case LocationCity:
		kind = "cidades ou municípios"
	case LocationDistrict:
		kind = "distritos"
	default:
		kind = "bairros"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Como especialista em geografia de Moçambique, liste de 5 a 8 nomes reais de %s que pertencem a: %s.\n", kind, q.Parent)
	if q.Province != "" {
		fmt.Fprintf(&b, "Província: %s\n", q.Province)
	}
	if q.City != "" {
		fmt.Fprintf(&b, "Cidade: %s\n", q.City)
	}
	if q.District != "" {
		fmt.Fprintf(&b, "Distrito: %s\n", q.District)
	}
	b.WriteString(`Retorne apenas um objeto JSON com a propriedade "suggestions", um array de strings.`)

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(b.String())}, &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"suggestions": stringList},
		Required:   []string{"suggestions"},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// EnergyTips implements Advisor.
func (g *Gemini) EnergyTips(ctx context.Context, appliances []types.Appliance, profile types.Profile) ([]Tip, error) {
	active := activeAppliances(appliances)
	prompt := fmt.Sprintf(`Como assistente do ContaLuz (Moçambique), analise os aparelhos desta residência e dê 3 dicas práticas e personalizadas de economia de energia.
Perfil: residência tipo %s em %s.
Consumo estimado atual: %.2f kWh/dia.
Aparelhos principais (com quantidades): %s.
Se houver vários aparelhos iguais (ex: 10 lâmpadas), sugira reduzir as unidades ligadas ao mesmo tempo quando fizer sentido.
Retorne as dicas em JSON.`,
		profile.ResidenceType, profile.Address, totalDailyKWh(active), describeAppliances(active))

	var tips []Tip
	err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)}, &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":           stringSchema,
				"description":     stringSchema,
				"estimatedSaving": {Type: genai.TypeString, Description: "Economia estimada em MT ou kWh"},
			},
			Required: []string{"title", "description", "estimatedSaving"},
		},
	}, &tips)
	if err != nil {
		return nil, err
	}
	return tips, nil
}

// RechargeStrategy implements Advisor.
func (g *Gemini) RechargeStrategy(ctx context.Context, amount, days float64, appliances []types.Appliance, profile types.Profile) (*Strategy, error) {
	active := activeAppliances(appliances)
	budget := tariff.DailyEnergyBudget(amount, days, profile.TariffPerKWh)
	prompt := fmt.Sprintf(`Um usuário em Moçambique quer que uma recarga de %g MT dure exatamente %g dias.
Tarifa: %g MT/kWh. Total disponível: %.2f kWh.
Limite diário sugerido: %.2f kWh/dia.
Aparelhos atuais (com quantidades): %s.
Crie uma estratégia de uso:
1. Que aparelhos devem ser desligados por completo?
2. Que aparelhos secundários devem ter o tempo ou a quantidade reduzidos (ex: ligar 2 lâmpadas em vez de 5)?
3. Um cronograma diário sugerido.
Retorne JSON com "explanation", "stopUsing", "reduceUsage" (objetos { name, newTime, reason }) e "dailyPlan".`,
		amount, days, profile.TariffPerKWh, budget.EnergyAvailableKWh, budget.DailyLimitKWh, describeAppliances(active))

	var s Strategy
	err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)}, &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"explanation": stringSchema,
			"stopUsing":   stringList,
			"reduceUsage": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":    stringSchema,
						"newTime": stringSchema,
						"reason":  stringSchema,
					},
				},
			},
			"dailyPlan": stringSchema,
		},
		Required: []string{"explanation", "stopUsing", "reduceUsage", "dailyPlan"},
	}, &s)
	if err != nil {
		return nil, err
	}
	s.Budget = budget
	return &s, nil
}

// MonthlyInsight implements Advisor.
func (g *Gemini) MonthlyInsight(ctx context.Context, appliances []types.Appliance, profile types.Profile, diffPercent float64) (string, error) {
	active := activeAppliances(appliances)
	list := make([]string, 0, len(active))
	for _, a := range active {
		list = append(list, fmt.Sprintf("%dx %s (%.2f kWh/dia total)", a.Quantity, a.Name, a.DailyKWh()))
	}
	direction := "superior"
	if diffPercent < 0 {
		direction = "inferior"
	}
	prompt := fmt.Sprintf(`Analise o consumo mensal de energia de um usuário em Moçambique.
O consumo atual está %.0f%% %s ao mês anterior.
Aparelhos e consumo diário individual: %s.
Perfil: %s em %s.
Explique em no máximo 3 frases por que o consumo mudou, indicando que aparelhos (e quantidades) mais pesam no gasto ou na economia.
Retorne apenas um objeto JSON com o campo "insight".`,
		math.Abs(diffPercent), direction, strings.Join(list, ", "), profile.ResidenceType, profile.Address)

	var out struct {
		Insight string `json:"insight"`
	}
	err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)}, &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"insight": stringSchema},
		Required:   []string{"insight"},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Insight, nil
}

// AnalyzePlate implements Advisor.
func (g *Gemini) AnalyzePlate(ctx context.Context, image []byte, mimeType string) (PlateReading, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	const prompt = `Analise a imagem desta placa de especificações de um eletrodoméstico e extraia:
1. Potência em Watts (W). Procure números seguidos de 'W' ou 'Watts'; converta 'kW' para 'W'.
2. Tensão em Volts (V), como '110V' ou '220V'.
3. Modelo, normalmente um código alfanumérico.
4. Um nome provável do aparelho (ex: 'Micro-ondas', 'Ferro de engomar').
Retorne apenas um objeto JSON.`

	var out PlateReading
	err := g.generate(ctx, []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}, &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"power":         {Type: genai.TypeNumber, Description: "Potência em Watts"},
			"voltage":       {Type: genai.TypeString, Description: "Tensão em Volts"},
			"model":         {Type: genai.TypeString, Description: "Modelo do aparelho"},
			"suggestedName": {Type: genai.TypeString, Description: "Nome provável do aparelho"},
		},
		Required: []string{"power"},
	}, &out)
	if err != nil {
		return PlateReading{}, err
	}
	if out.PowerWatts <= 0 {
		return PlateReading{}, fmt.Errorf("advisor read no power from plate")
	}
	return out, nil
}
