package library

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// BorrowBook opens a loan for memberID on the book identified by isbn.
//
// Preconditions are checked in a fixed order and the first failing one wins:
// ErrNoStock when every copy is out, ErrAlreadyHeld when the member already
// has an open loan for this book, ErrHasFines when any fine balance is
// outstanding, ErrLimitReached when the member is at their borrow limit.
// The availability check and the ledger insert share one transaction, so two
// borrowers can never both claim the last copy.
func (d *Database) BorrowBook(ctx context.Context, isbn, memberID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("borrow", err)
	}
	defer tx.Rollback()

	avail, err := availableCopies(ctx, tx, isbn)
	if err != nil {
		return err
	}
	if avail <= 0 {
		return ErrNoStock
	}

	held, err := hasOpenLoan(ctx, tx, isbn, memberID)
	if err != nil {
		return err
	}
	if held {
		return ErrAlreadyHeld
	}

	member, err := getMember(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if member.Fines > 0 {
		return ErrHasFines
	}

	open, err := openLoanCountForMember(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if open >= member.BorrowLimit {
		return ErrLimitReached
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (isbn, user_id, date_checked_out, returned) VALUES (?, ?, ?, 0)`,
		isbn, memberID, time.Now())
	if err != nil {
		return storageErr("borrow insert", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("borrow commit", err)
	}

	d.log.Info("book borrowed",
		zap.Int64("isbn", isbn),
		zap.Int64("member_id", memberID),
		zap.Int("copies_left", avail-1))
	return nil
}

// ReturnBook closes the open loan for the (isbn, memberID) pair, stamping the
// check-in date. Returning a book the member does not hold is a hard
// rejection: ErrNotOnLoan, with no record touched.
//
// Whether the return was on time is the caller's judgment; it must follow up
// with exactly one Reward or Fine call.
func (d *Database) ReturnBook(ctx context.Context, isbn, memberID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("return", err)
	}
	defer tx.Rollback()

	if err := closeLoan(ctx, tx, isbn, memberID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("return commit", err)
	}

	d.log.Info("book returned",
		zap.Int64("isbn", isbn),
		zap.Int64("member_id", memberID))
	return nil
}

// closeLoan stamps the open record for the pair as returned, inside the
// caller's transaction. RemoveCopy reuses it for force-returns.
func closeLoan(ctx context.Context, tx *sql.Tx, isbn, memberID int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE records SET date_checked_in = ?, returned = 1
		 WHERE isbn = ? AND user_id = ? AND returned = 0`,
		time.Now(), isbn, memberID)
	if err != nil {
		return storageErr("return update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr("return update", err)
	}
	if affected == 0 {
		return ErrNotOnLoan
	}
	return nil
}

// GetOpenLoans lists every copy currently out, joined with its title and the
// holding member, ordered by ISBN.
func (d *Database) GetOpenLoans(ctx context.Context) ([]OpenLoan, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT rc.isbn, bk.title, bk.author, rc.user_id, u.name, rc.date_checked_out
		FROM records AS rc
		INNER JOIN books AS bk ON rc.isbn = bk.isbn
		INNER JOIN users AS u ON rc.user_id = u.id
		WHERE rc.returned = 0
		ORDER BY rc.isbn`)
	if err != nil {
		return nil, storageErr("open loan listing", err)
	}
	defer rows.Close()

	var loans []OpenLoan
	for rows.Next() {
		var l OpenLoan
		if err := rows.Scan(&l.ISBN, &l.Title, &l.Author, &l.MemberID, &l.MemberName, &l.CheckedOut); err != nil {
			return nil, storageErr("open loan scan", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("open loan listing", err)
	}
	return loans, nil
}

// GetLoanHistory returns every ledger row for a member, newest first,
// including loans long since returned.
func (d *Database) GetLoanHistory(ctx context.Context, memberID int64) ([]Loan, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT isbn, user_id, date_checked_out, date_checked_in, returned
		FROM records
		WHERE user_id = ?
		ORDER BY date_checked_out DESC`, memberID)
	if err != nil {
		return nil, storageErr("loan history", err)
	}
	defer rows.Close()

	var history []Loan
	for rows.Next() {
		var l Loan
		var checkedIn sql.NullTime
		if err := rows.Scan(&l.ISBN, &l.MemberID, &l.CheckedOut, &checkedIn, &l.Returned); err != nil {
			return nil, storageErr("loan history scan", err)
		}
		if checkedIn.Valid {
			t := checkedIn.Time
			l.CheckedIn = &t
		}
		history = append(history, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("loan history", err)
	}
	return history, nil
}

// GetMemberOpenLoans lists the books memberID currently has out.
func (d *Database) GetMemberOpenLoans(ctx context.Context, memberID int64) ([]OpenLoan, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT rc.isbn, bk.title, bk.author, rc.user_id, u.name, rc.date_checked_out
		FROM records AS rc
		INNER JOIN books AS bk ON rc.isbn = bk.isbn
		INNER JOIN users AS u ON rc.user_id = u.id
		WHERE rc.user_id = ? AND rc.returned = 0
		ORDER BY rc.date_checked_out`, memberID)
	if err != nil {
		return nil, storageErr("member loan listing", err)
	}
	defer rows.Close()

	var loans []OpenLoan
	for rows.Next() {
		var l OpenLoan
		if err := rows.Scan(&l.ISBN, &l.Title, &l.Author, &l.MemberID, &l.MemberName, &l.CheckedOut); err != nil {
			return nil, storageErr("member loan scan", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("member loan listing", err)
	}
	return loans, nil
}
