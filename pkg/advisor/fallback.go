package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/types"
)

// DefaultTips are returned when no tips could be generated.
var DefaultTips = []Tip{
	{Title: "Desligue as luzes", Description: "Lembre-se de desligar luzes em cômodos vazios.", EstimatedSaving: "50 MT/mês"},
	{Title: "Uso do Ferro", Description: "Acumule roupas para engomar tudo de uma vez.", EstimatedSaving: "120 MT/mês"},
}

// Fallback wraps an Advisor and replaces every failure with a deterministic
// value. Only AnalyzePlate still fails, with ErrPlateUnreadable.
type Fallback struct {
	next Advisor
}

var _ Advisor = (*Fallback)(nil)

// NewFallback wraps next. A nil next always falls back.
func NewFallback(next Advisor) *Fallback {
	return &Fallback{next: next}
}

func (f *Fallback) failed(ctx context.Context, op string, err error) {
	log.Ctx(ctx).WarnContext(ctx, "advisor failed, using fallback", slog.String("op", op), slog.Any("error", err))
}

// LocationSuggestions implements Advisor. It falls back to an empty list.
func (f *Fallback) LocationSuggestions(ctx context.Context, q LocationQuery) ([]string, error) {
	if f.next != nil {
		list, err := f.next.LocationSuggestions(ctx, q)
		if err == nil && list != nil {
			return list, nil
		}
		f.failed(ctx, "locations", err)
	}
	return []string{}, nil
}

// EnergyTips implements Advisor. It falls back to DefaultTips.
func (f *Fallback) EnergyTips(ctx context.Context, appliances []types.Appliance, profile types.Profile) ([]Tip, error) {
	if f.next != nil {
		tips, err := f.next.EnergyTips(ctx, appliances, profile)
		if err == nil && len(tips) > 0 {
			return tips, nil
		}
		f.failed(ctx, "tips", err)
	}
	return append([]Tip(nil), DefaultTips...), nil
}

// RechargeStrategy implements Advisor. It falls back to a nil strategy.
func (f *Fallback) RechargeStrategy(ctx context.Context, amount, days float64, appliances []types.Appliance, profile types.Profile) (*Strategy, error) {
	if f.next != nil {
		s, err := f.next.RechargeStrategy(ctx, amount, days, appliances, profile)
		if err == nil {
			return s, nil
		}
		f.failed(ctx, "strategy", err)
	}
	return nil, nil
}

// MonthlyInsight implements Advisor. It falls back to FallbackInsight.
func (f *Fallback) MonthlyInsight(ctx context.Context, appliances []types.Appliance, profile types.Profile, diffPercent float64) (string, error) {
	if f.next != nil {
		insight, err := f.next.MonthlyInsight(ctx, appliances, profile, diffPercent)
		if err == nil && insight != "" {
			return insight, nil
		}
		f.failed(ctx, "insight", err)
	}
	return FallbackInsight(diffPercent), nil
}

// AnalyzePlate implements Advisor. Any failure is ErrPlateUnreadable.
func (f *Fallback) AnalyzePlate(ctx context.Context, image []byte, mimeType string) (PlateReading, error) {
	if f.next == nil {
		return PlateReading{}, ErrPlateUnreadable
	}
	reading, err := f.next.AnalyzePlate(ctx, image, mimeType)
	if err != nil {
		f.failed(ctx, "plate", err)
		return PlateReading{}, fmt.Errorf("%w: %w", ErrPlateUnreadable, err)
	}
	return reading, nil
}

// FallbackInsight is a fixed explanation built from the deviation percentage.
func FallbackInsight(diffPercent float64) string {
	direction := "mais alto"
	if diffPercent < 0 {
		direction = "mais baixo"
	}
	return fmt.Sprintf(
		"O consumo está %.0f%% %s. Verifique o uso de aparelhos de alta potência ou a quantidade de lâmpadas ligadas para entender melhor a variação.",
		math.Abs(diffPercent), direction,
	)
}
