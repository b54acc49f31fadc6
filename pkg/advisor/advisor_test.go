package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

// generateRequest is the part of the generateContent request body the tests
// inspect.
type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
		ResponseSchema   struct {
			Type     string   `json:"type"`
			Required []string `json:"required"`
		} `json:"responseSchema"`
	} `json:"generationConfig"`
}

// respondWith returns a server answering every request with text as the first
// candidate and records the decoded request.
func respondWith(t *testing.T, text string, got *generateRequest) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		resp := map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failing(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGemini(t *testing.T, srv *httptest.Server) *Gemini {
	g, err := NewGemini(context.Background(), srv.URL, "key", "test-model", 0)
	require.NoError(t, err)
	return g
}

var testAppliances = []types.Appliance{
	{ID: "1", Name: "Geleira", PowerWatts: 150, HoursPerDay: 24, Quantity: 1, IsActive: true},
	{ID: "2", Name: "Lâmpada", PowerWatts: 9, HoursPerDay: 6, Quantity: 4, IsActive: true},
	{ID: "3", Name: "Ar Condicionado", PowerWatts: 1200, HoursPerDay: 8, Quantity: 1, IsActive: false},
}

func TestGemini(t *testing.T) {
	ctx := context.Background()
	profile := types.DefaultProfile()

	t.Run("LocationSuggestions", func(t *testing.T) {
		var req generateRequest
		srv := respondWith(t, `{"suggestions":["Matola","Boane"]}`, &req)
		g := newGemini(t, srv)

		list, err := g.LocationSuggestions(ctx, LocationQuery{Level: LocationCity, Parent: "Maputo Província", Province: "Maputo Província"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Matola", "Boane"}, list)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
		assert.Equal(t, "OBJECT", req.GenerationConfig.ResponseSchema.Type)
		assert.Equal(t, []string{"suggestions"}, req.GenerationConfig.ResponseSchema.Required)
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "cidades ou municípios")
	})

	t.Run("EnergyTips only describes active appliances", func(t *testing.T) {
		var req generateRequest
		srv := respondWith(t, `[{"title":"a","description":"b","estimatedSaving":"10 MT/mês"}]`, &req)
		g := newGemini(t, srv)

		tips, err := g.EnergyTips(ctx, testAppliances, profile)
		require.NoError(t, err)
		require.Len(t, tips, 1)
		assert.Equal(t, "10 MT/mês", tips[0].EstimatedSaving)
		prompt := req.Contents[0].Parts[0].Text
		assert.Contains(t, prompt, "4x Lâmpada")
		assert.Contains(t, prompt, "3.82 kWh/dia")
		assert.NotContains(t, prompt, "Ar Condicionado")
	})

	t.Run("RechargeStrategy carries the local budget", func(t *testing.T) {
		srv := respondWith(t, `{"explanation":"e","stopUsing":["Ar Condicionado"],"reduceUsage":[{"name":"Lâmpada","newTime":"3h","reason":"r"}],"dailyPlan":"p"}`, nil)
		g := newGemini(t, srv)

		s, err := g.RechargeStrategy(ctx, 400, 10, testAppliances, profile)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, []string{"Ar Condicionado"}, s.StopUsing)
		assert.Equal(t, "3h", s.ReduceUsage[0].NewTime)
		assert.Equal(t, 50.0, s.Budget.EnergyAvailableKWh)
		assert.Equal(t, 5.0, s.Budget.DailyLimitKWh)
	})

	t.Run("MonthlyInsight", func(t *testing.T) {
		srv := respondWith(t, `{"insight":"A geleira domina."}`, nil)
		g := newGemini(t, srv)
		insight, err := g.MonthlyInsight(ctx, testAppliances, profile, 12)
		require.NoError(t, err)
		assert.Equal(t, "A geleira domina.", insight)
	})

	t.Run("AnalyzePlate", func(t *testing.T) {
		var req generateRequest
		srv := respondWith(t, `{"power":1200,"voltage":"220V","model":"MW-20","suggestedName":"Micro-ondas"}`, &req)
		g := newGemini(t, srv)

		reading, err := g.AnalyzePlate(ctx, []byte{0xff, 0xd8}, "")
		require.NoError(t, err)
		assert.Equal(t, 1200.0, reading.PowerWatts)
		assert.Equal(t, "Micro-ondas", reading.SuggestedName)
		require.Len(t, req.Contents[0].Parts, 2)
		require.NotNil(t, req.Contents[0].Parts[1].InlineData)
		assert.Equal(t, "image/jpeg", req.Contents[0].Parts[1].InlineData.MimeType)
		assert.Equal(t, "/9g=", req.Contents[0].Parts[1].InlineData.Data)
	})

	t.Run("AnalyzePlate without power", func(t *testing.T) {
		srv := respondWith(t, `{"power":0}`, nil)
		g := newGemini(t, srv)
		_, err := g.AnalyzePlate(ctx, []byte{1}, "image/png")
		assert.Error(t, err)
	})

	t.Run("errors", func(t *testing.T) {
		g := newGemini(t, failing(t))
		_, err := g.EnergyTips(ctx, nil, profile)
		assert.ErrorContains(t, err, "failed to call advisor")
		assert.ErrorContains(t, err, "400")

		g = newGemini(t, respondWith(t, `not json`, nil))
		_, err = g.MonthlyInsight(ctx, nil, profile, 0)
		assert.ErrorContains(t, err, "failed to decode advisor json")
	})

	t.Run("cancelled context", func(t *testing.T) {
		g := newGemini(t, respondWith(t, `{"insight":"x"}`, nil))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := g.MonthlyInsight(cctx, nil, profile, 0)
		assert.Error(t, err)
	})
}

func TestGeminiValidate(t *testing.T) {
	assert.Error(t, (&Gemini{}).Validate())
	assert.Error(t, (&Gemini{apiURL: "http://x"}).Validate())
	assert.NoError(t, (&Gemini{apiURL: "http://x", model: "m"}).Validate())
}

type failingAdvisor struct{}

var errDown = errors.New("down")

func (failingAdvisor) LocationSuggestions(context.Context, LocationQuery) ([]string, error) {
	return nil, errDown
}

func (failingAdvisor) EnergyTips(context.Context, []types.Appliance, types.Profile) ([]Tip, error) {
	return nil, errDown
}

func (failingAdvisor) RechargeStrategy(context.Context, float64, float64, []types.Appliance, types.Profile) (*Strategy, error) {
	return nil, errDown
}

func (failingAdvisor) MonthlyInsight(context.Context, []types.Appliance, types.Profile, float64) (string, error) {
	return "", errDown
}

func (failingAdvisor) AnalyzePlate(context.Context, []byte, string) (PlateReading, error) {
	return PlateReading{}, errDown
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	profile := types.DefaultProfile()

	for name, f := range map[string]*Fallback{
		"nil":     NewFallback(nil),
		"failing": NewFallback(failingAdvisor{}),
	} {
		t.Run(name, func(t *testing.T) {
			list, err := f.LocationSuggestions(ctx, LocationQuery{Level: LocationDistrict, Parent: "Matola"})
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.NotNil(t, list)

			tips, err := f.EnergyTips(ctx, testAppliances, profile)
			require.NoError(t, err)
			assert.Equal(t, DefaultTips, tips)

			s, err := f.RechargeStrategy(ctx, 100, 5, testAppliances, profile)
			require.NoError(t, err)
			assert.Nil(t, s)

			insight, err := f.MonthlyInsight(ctx, testAppliances, profile, -25)
			require.NoError(t, err)
			assert.Equal(t, FallbackInsight(-25), insight)

			_, err = f.AnalyzePlate(ctx, []byte{1}, "image/jpeg")
			assert.ErrorIs(t, err, ErrPlateUnreadable)
		})
	}

	t.Run("passes through", func(t *testing.T) {
		srv := respondWith(t, `{"insight":"ok"}`, nil)
		f := NewFallback(newGemini(t, srv))
		insight, err := f.MonthlyInsight(ctx, nil, profile, 5)
		require.NoError(t, err)
		assert.Equal(t, "ok", insight)
	})
}

func TestFallbackInsight(t *testing.T) {
	assert.Equal(t,
		"O consumo está 50% mais alto. Verifique o uso de aparelhos de alta potência ou a quantidade de lâmpadas ligadas para entender melhor a variação.",
		FallbackInsight(50),
	)
	assert.Contains(t, FallbackInsight(-12.4), "12% mais baixo")
}

func TestLocationLevel(t *testing.T) {
	assert.True(t, LocationNeighborhood.Valid())
	assert.False(t, LocationLevel("country").Valid())
}
