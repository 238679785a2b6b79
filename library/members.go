package library

import (
	"context"
	"math/rand"

	"go.uber.org/zap"
)

// Membership numbers are allocated at random within this range so they look
// like the numbers printed on physical library cards.
const (
	memberIDMin = 1000
	memberIDMax = 9999
)

// AddMember registers a new member with a fresh card number, no fines, no
// rewards, and the default borrow limit. The number is drawn at random and
// redrawn until it collides with no existing member.
func (d *Database) AddMember(ctx context.Context, name string) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("add member", err)
	}
	defer tx.Rollback()

	var id int64
	for {
		id = memberIDMin + rand.Int63n(memberIDMax-memberIDMin+1)
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
		if err != nil {
			return 0, storageErr("member id check", err)
		}
		if !exists {
			break
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, fines, rewards, borrow_limit) VALUES (?, ?, 0, 0, ?)`,
		id, name, defaultBorrowLimit)
	if err != nil {
		return 0, storageErr("add member insert", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("add member commit", err)
	}

	d.log.Info("member added",
		zap.Int64("member_id", id),
		zap.String("name", name))
	return id, nil
}

// GetMember fetches a single member.
func (d *Database) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	return getMember(ctx, d.db, memberID)
}

// GetAllMembers returns all members ordered by card number.
func (d *Database) GetAllMembers(ctx context.Context) ([]Member, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, fines, rewards, borrow_limit FROM users ORDER BY id`)
	if err != nil {
		return nil, storageErr("member listing", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Fines, &m.Rewards, &m.BorrowLimit); err != nil {
			return nil, storageErr("member scan", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("member listing", err)
	}
	return members, nil
}
