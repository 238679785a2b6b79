package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRewardPolicy(t *testing.T) {
	tests := []struct {
		name         string
		rewards      int
		limit        int
		wantRewards  int
		wantLimit    int
		wantPromoted bool
	}{
		{"first point", 0, 3, 1, 3, false},
		{"ninth point stays", 8, 3, 9, 3, false},
		{"tenth point promotes", 9, 3, 0, 4, true},
		{"promotes up to ceiling", 9, 5, 0, 6, true},
		{"ceiling blocks promotion", 9, 6, 10, 6, false},
		{"accumulates past threshold at ceiling", 14, 6, 15, 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rewards, limit, promoted := applyReward(tt.rewards, tt.limit)
			require.Equal(t, tt.wantRewards, rewards)
			require.Equal(t, tt.wantLimit, limit)
			require.Equal(t, tt.wantPromoted, promoted)
		})
	}
}

func TestApplyFinePolicy(t *testing.T) {
	fines, rewards, limit := applyFine(2, 5)
	require.Equal(t, 7, fines)
	require.Zero(t, rewards)
	require.Equal(t, defaultBorrowLimit, limit)
}

func TestTenRewardsPromoteOnce(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	alice := addMember(t, db, "Alice")

	var promotions int
	for i := 0; i < 10; i++ {
		_, promoted, err := db.Reward(ctx, alice)
		require.NoError(t, err)
		if promoted {
			promotions++
		}
	}

	m, err := db.GetMember(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 1, promotions)
	require.Equal(t, 4, m.BorrowLimit)
	require.Zero(t, m.Rewards)
}

func TestRewardCeiling(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	alice := addMember(t, db, "Alice")

	// 30 points lift the limit from 3 to its ceiling of 6.
	for i := 0; i < 30; i++ {
		_, _, err := db.Reward(ctx, alice)
		require.NoError(t, err)
	}
	m, err := db.GetMember(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, maxBorrowLimit, m.BorrowLimit)
	require.Zero(t, m.Rewards)

	// Beyond the ceiling, points pile up without further promotion.
	for i := 0; i < 12; i++ {
		_, promoted, err := db.Reward(ctx, alice)
		require.NoError(t, err)
		require.False(t, promoted)
	}
	m, err = db.GetMember(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, maxBorrowLimit, m.BorrowLimit)
	require.Equal(t, 12, m.Rewards)
}

func TestFineResetsPromotedMember(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	alice := addMember(t, db, "Alice")

	// Work the limit up to 5 and bank a few points.
	for i := 0; i < 23; i++ {
		_, _, err := db.Reward(ctx, alice)
		require.NoError(t, err)
	}
	m, err := db.GetMember(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 5, m.BorrowLimit)
	require.Equal(t, 3, m.Rewards)

	require.NoError(t, db.Fine(ctx, alice, 1))

	m, err = db.GetMember(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 1, m.Fines)
	require.Zero(t, m.Rewards)
	require.Equal(t, defaultBorrowLimit, m.BorrowLimit)
}

func TestFineQuantityValidation(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	alice := addMember(t, db, "Alice")

	require.ErrorIs(t, db.Fine(ctx, alice, 0), ErrInvalidQuantity)
	require.ErrorIs(t, db.Fine(ctx, alice, -2), ErrInvalidQuantity)
	require.ErrorIs(t, db.Fine(ctx, 1, 1), ErrNotFound)
}

func TestPayFineAmountAndRepeat(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	alice := addMember(t, db, "Alice")

	require.NoError(t, db.Fine(ctx, alice, 2))

	amount, err := db.PayFine(ctx, alice)
	require.NoError(t, err)
	require.InDelta(t, 3.00, amount, 1e-9)

	m, err := db.GetMember(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, m.Fines)

	_, err = db.PayFine(ctx, alice)
	require.ErrorIs(t, err, ErrNoFineDue)
}

func TestRewardUnknownMember(t *testing.T) {
	db := tempDB(t)
	_, _, err := db.Reward(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}
