package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// AddStock records newly acquired copies. An unknown ISBN creates the book
// with the given metadata and requires qty > 0; a known ISBN has qty added to
// its stock and the metadata arguments are ignored, since a duplicate
// submission is assumed to refer to the same book. Returns true when the
// book was created.
func (d *Database) AddStock(ctx context.Context, isbn int64, title, author string, qty int) (bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storageErr("add stock", err)
	}
	defer tx.Rollback()

	_, err = bookStock(ctx, tx, isbn)
	switch {
	case errors.Is(err, ErrNotFound):
		if qty <= 0 {
			return false, ErrInvalidQuantity
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO books (isbn, title, author, stock) VALUES (?, ?, ?, ?)`,
			isbn, title, author, qty)
		if err != nil {
			return false, storageErr("add stock insert", err)
		}
		if err := tx.Commit(); err != nil {
			return false, storageErr("add stock commit", err)
		}
		d.log.Info("book added to catalog",
			zap.Int64("isbn", isbn),
			zap.String("title", title),
			zap.Int("copies", qty))
		return true, nil

	case err != nil:
		return false, err

	default:
		if qty < 0 {
			return false, ErrInvalidQuantity
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE books SET stock = stock + ? WHERE isbn = ?`, qty, isbn)
		if err != nil {
			return false, storageErr("add stock update", err)
		}
		if err := tx.Commit(); err != nil {
			return false, storageErr("add stock commit", err)
		}
		d.log.Info("stock increased",
			zap.Int64("isbn", isbn),
			zap.Int("copies", qty))
		return false, nil
	}
}

// RemoveCopy strikes one physical copy from the inventory, e.g. when lost or
// damaged. Stock must be positive or ErrNoStock is returned.
//
// responsibleMember designates the holder who lost the copy: their loan is
// force-returned and they are fined LostBookFineUnits, all within the same
// transaction as the stock decrement. Pass 0 when no one is responsible; in
// that case a copy must actually be on the shelf, otherwise the stock could
// drop below the open-loan count and the call is rejected with ErrNoStock.
func (d *Database) RemoveCopy(ctx context.Context, isbn int64, responsibleMember int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("remove copy", err)
	}
	defer tx.Rollback()

	stock, err := bookStock(ctx, tx, isbn)
	if err != nil {
		return err
	}
	if stock <= 0 {
		return ErrNoStock
	}

	if responsibleMember != 0 {
		if err := closeLoan(ctx, tx, isbn, responsibleMember); err != nil {
			return err
		}
		if err := fineMember(ctx, tx, responsibleMember, LostBookFineUnits); err != nil {
			return err
		}
	} else {
		open, err := openLoanCountForBook(ctx, tx, isbn)
		if err != nil {
			return err
		}
		if stock-open <= 0 {
			return ErrNoStock
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET stock = stock - 1 WHERE isbn = ?`, isbn); err != nil {
		return storageErr("remove copy update", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("remove copy commit", err)
	}

	d.log.Info("copy removed from stock",
		zap.Int64("isbn", isbn),
		zap.Int64("responsible_member", responsibleMember))
	return nil
}

// Available reports how many copies of the book are on the shelf right now.
func (d *Database) Available(ctx context.Context, isbn int64) (int, error) {
	return availableCopies(ctx, d.db, isbn)
}

// GetBook fetches one catalog entry.
func (d *Database) GetBook(ctx context.Context, isbn int64) (*Book, error) {
	var b Book
	err := d.db.QueryRowContext(ctx,
		`SELECT isbn, title, author, stock FROM books WHERE isbn = ?`, isbn).
		Scan(&b.ISBN, &b.Title, &b.Author, &b.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr("book lookup", err)
	}
	return &b, nil
}

// GetBookStatus fetches one catalog entry with its derived on-shelf count.
func (d *Database) GetBookStatus(ctx context.Context, isbn int64) (*BookStatus, error) {
	b, err := d.GetBook(ctx, isbn)
	if err != nil {
		return nil, err
	}
	open, err := openLoanCountForBook(ctx, d.db, isbn)
	if err != nil {
		return nil, err
	}
	return &BookStatus{Book: *b, OnShelf: b.Stock - open}, nil
}

// GetAllBooks lists the whole catalog with stock and on-shelf counts.
func (d *Database) GetAllBooks(ctx context.Context) ([]BookStatus, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT bk.isbn, bk.title, bk.author, bk.stock, bk.stock - COUNT(rc.isbn)
		FROM books AS bk
		LEFT JOIN (SELECT isbn FROM records WHERE returned = 0) AS rc
			ON bk.isbn = rc.isbn
		GROUP BY bk.isbn
		ORDER BY bk.isbn`)
	if err != nil {
		return nil, storageErr("catalog listing", err)
	}
	defer rows.Close()

	var books []BookStatus
	for rows.Next() {
		var b BookStatus
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Stock, &b.OnShelf); err != nil {
			return nil, storageErr("catalog scan", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("catalog listing", err)
	}
	return books, nil
}

// SearchField selects which column a catalog search matches against. Keeping
// it a closed enumeration keeps column names out of user hands entirely.
type SearchField int

const (
	SearchByTitle SearchField = iota
	SearchByAuthor
)

// SearchBooks finds catalog entries whose title or author contains substr.
func (d *Database) SearchBooks(ctx context.Context, field SearchField, substr string) ([]Book, error) {
	var query string
	switch field {
	case SearchByTitle:
		query = `SELECT isbn, title, author, stock FROM books WHERE title LIKE ? ORDER BY isbn`
	case SearchByAuthor:
		query = `SELECT isbn, title, author, stock FROM books WHERE author LIKE ? ORDER BY isbn`
	default:
		return nil, fmt.Errorf("unknown search field %d", field)
	}

	rows, err := d.db.QueryContext(ctx, query, "%"+substr+"%")
	if err != nil {
		return nil, storageErr("book search", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Stock); err != nil {
			return nil, storageErr("book search scan", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("book search", err)
	}
	return books, nil
}
