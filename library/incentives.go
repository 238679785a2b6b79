package library

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

// FineUnitRate is the amount billed per unpaid fine unit.
const FineUnitRate = 1.50

const (
	defaultBorrowLimit = 3
	maxBorrowLimit     = 6

	// promotionThreshold is exclusive: the 10th point tips rewards past it.
	promotionThreshold = 9

	// LostBookFineUnits is the penalty for a lost or damaged copy.
	LostBookFineUnits = 5
)

// applyReward maps a member's counters to their state after earning one
// point. Once the borrow limit sits at its ceiling, rewards keep
// accumulating past the threshold without further promotion; only a fine
// resets them.
func applyReward(rewards, borrowLimit int) (newRewards, newLimit int, promoted bool) {
	rewards++
	if rewards > promotionThreshold && borrowLimit < maxBorrowLimit {
		return 0, borrowLimit + 1, true
	}
	return rewards, borrowLimit, false
}

// applyFine is a punitive full reset: any promoted borrow limit drops back to
// the default, and accumulated rewards are forfeited.
func applyFine(fines, qty int) (newFines, newRewards, newLimit int) {
	return fines + qty, 0, defaultBorrowLimit
}

// Reward credits memberID with one point for a timely return and applies a
// borrow-limit promotion when the threshold is crossed. The returned member
// reflects the state after the call.
func (d *Database) Reward(ctx context.Context, memberID int64) (*Member, bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, storageErr("reward", err)
	}
	defer tx.Rollback()

	member, err := getMember(ctx, tx, memberID)
	if err != nil {
		return nil, false, err
	}

	rewards, limit, promoted := applyReward(member.Rewards, member.BorrowLimit)
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET rewards = ?, borrow_limit = ? WHERE id = ?`,
		rewards, limit, memberID)
	if err != nil {
		return nil, false, storageErr("reward update", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, storageErr("reward commit", err)
	}

	member.Rewards = rewards
	member.BorrowLimit = limit
	if promoted {
		d.log.Info("member promoted",
			zap.Int64("member_id", memberID),
			zap.Int("borrow_limit", limit))
	}
	return member, promoted, nil
}

// Fine charges memberID qty fine units and resets their rewards and borrow
// limit. qty must be positive; use LostBookFineUnits for lost or damaged
// copies.
func (d *Database) Fine(ctx context.Context, memberID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("fine", err)
	}
	defer tx.Rollback()

	if err := fineMember(ctx, tx, memberID, qty); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("fine commit", err)
	}

	d.log.Warn("fine issued",
		zap.Int64("member_id", memberID),
		zap.Int("units", qty))
	return nil
}

// fineMember applies the fine inside the caller's transaction.
func fineMember(ctx context.Context, tx *sql.Tx, memberID int64, qty int) error {
	member, err := getMember(ctx, tx, memberID)
	if err != nil {
		return err
	}

	fines, rewards, limit := applyFine(member.Fines, qty)
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET fines = ?, rewards = ?, borrow_limit = ? WHERE id = ?`,
		fines, rewards, limit, memberID)
	if err != nil {
		return storageErr("fine update", err)
	}
	return nil
}

// PayFine clears the member's fine balance and reports the amount owed at
// FineUnitRate per unit. The amount is informational; no payment is
// collected here. ErrNoFineDue when the balance is already clear.
func (d *Database) PayFine(ctx context.Context, memberID int64) (float64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("pay fine", err)
	}
	defer tx.Rollback()

	member, err := getMember(ctx, tx, memberID)
	if err != nil {
		return 0, err
	}
	if member.Fines == 0 {
		return 0, ErrNoFineDue
	}

	amount := float64(member.Fines) * FineUnitRate
	if _, err := tx.ExecContext(ctx, `UPDATE users SET fines = 0 WHERE id = ?`, memberID); err != nil {
		return 0, storageErr("pay fine update", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("pay fine commit", err)
	}

	d.log.Info("fines paid",
		zap.Int64("member_id", memberID),
		zap.Float64("amount", amount))
	return amount, nil
}
