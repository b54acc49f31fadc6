package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/contaluz/contaluz/pkg/ledger"
	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/projector"
	"github.com/contaluz/contaluz/pkg/storage"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"
)

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	householdID := lflag.String("household-id", "default", "Household to seed")
	history := lflag.Duration("history", 30*24*time.Hour, "How far back the seeded recharges go")
	lflag.Configure()

	ctx := log.WithHousehold(context.Background(), *householdID)
	defer s.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding demo household")

	// Use a new random source
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	now := time.Now()
	start := now.Add(-*history)

	appliances := ledger.NewAppliances(nil)
	for _, p := range types.Presets {
		a := appliances.AddPreset(p)
		if p.Category == types.CategoryLighting {
			// most homes have several bulbs
			fields := types.ApplianceFields{
				Name:        a.Name,
				PowerWatts:  a.PowerWatts,
				HoursPerDay: a.HoursPerDay,
				Quantity:    4 + rng.Intn(5),
				Category:    a.Category,
			}
			appliances.Update(a.ID, fields)
		}
		if p.Category == types.CategoryCooling && rng.Float64() < 0.5 {
			appliances.ToggleActive(a.ID)
		}
	}
	dailyKWh := appliances.TotalDailyKWh()

	profile := types.DefaultProfile()
	profile.Name = "Casa Demo"
	profile.City = "Maputo"
	profile.District = "KaMpfumo"
	profile.Neighborhood = "Polana Cimento"
	profile.HistoricalAvgKWh = math.Round(dailyKWh*(0.8+rng.Float64()*0.3)*10) / 10
	profile.OnboardingCompleted = true

	recharges := ledger.NewRecharges(nil)
	proj := projector.New(0, start)
	amounts := []float64{100, 250, 500, 1000}

	// Recharge roughly every four days, syncing in between
	for t := start; t.Before(now); t = t.Add(time.Duration(72+rng.Intn(48)) * time.Hour) {
		res := proj.Sync(t, dailyKWh, profile.TariffPerKWh)
		amount := amounts[rng.Intn(len(amounts))]
		if _, ok := recharges.Recharge(amount, t); !ok {
			continue
		}
		proj.Credit(amount)
		fmt.Printf("Seeded recharge at %s: %.0f MT (deducted %.2f MT, balance %.2f MT)\n",
			t.Format(time.DateTime), amount, res.Deducted, proj.Balance())
	}
	proj.Sync(now, dailyKWh, profile.TariffPerKWh)

	state := types.State{
		Balance:    proj.Balance(),
		Appliances: appliances.List(),
		Profile:    profile,
		LastUpdate: proj.LastSync(),
		Recharges:  recharges.List(),
	}
	if err := s.SaveState(ctx, *householdID, state, types.CurrentStateVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed household", "error", err)
		os.Exit(1)
	}

	p := projector.Project(state.Balance, dailyKWh, profile, state.LastUpdate)
	log.Ctx(ctx).InfoContext(ctx, "seeded demo household successfully",
		"balance", p.Balance,
		"dailyKWh", p.DailyKWh,
		"autonomyDays", p.AutonomyDays,
	)
}
