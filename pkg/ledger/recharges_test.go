package ledger

import (
	"testing"
	"time"

	"github.com/contaluz/contaluz/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecharges(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		r := NewRecharges(nil)
		_, ok := r.Recharge(0, now)
		assert.False(t, ok)
		_, ok = r.Recharge(-50, now)
		assert.False(t, ok)
		assert.Empty(t, r.List())
		assert.NotNil(t, r.List())
	})

	t.Run("prepends records", func(t *testing.T) {
		r := NewRecharges([]types.Recharge{{ID: "old", Date: now.Add(-48 * time.Hour), Amount: 100}})
		r.newID = sequentialIDs()

		rec, ok := r.Recharge(250.5, now)
		require.True(t, ok)
		assert.Equal(t, "id-1", rec.ID)
		assert.Equal(t, 250.5, rec.Amount)
		assert.Equal(t, now, rec.Date)

		list := r.List()
		require.Len(t, list, 2)
		assert.Equal(t, "id-1", list[0].ID)
		assert.Equal(t, "old", list[1].ID)
		assert.Equal(t, 350.5, r.Total())
	})
}
