package library

import (
	"context"
	"errors"
	"testing"
)

func TestBorrowAndReturnFlow(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780261103573, "The Fellowship of the Ring", "J.R.R. Tolkien", 1)
	alice := addMember(t, db, "Alice")
	bob := addMember(t, db, "Bob")

	if err := db.BorrowBook(ctx, 9780261103573, alice); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// Single copy is out, so the next borrower is turned away.
	if err := db.BorrowBook(ctx, 9780261103573, bob); !errors.Is(err, ErrNoStock) {
		t.Fatalf("want ErrNoStock, got %v", err)
	}

	if err := db.ReturnBook(ctx, 9780261103573, alice); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := db.BorrowBook(ctx, 9780261103573, bob); err != nil {
		t.Fatalf("borrow after return: %v", err)
	}
}

func TestBorrowSamePairRejected(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780141036144, "1984", "George Orwell", 3)
	alice := addMember(t, db, "Alice")

	if err := db.BorrowBook(ctx, 9780141036144, alice); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	// Copies remain but the member already holds one.
	if err := db.BorrowBook(ctx, 9780141036144, alice); !errors.Is(err, ErrAlreadyHeld) {
		t.Fatalf("want ErrAlreadyHeld, got %v", err)
	}
}

func TestBorrowBlockedByFines(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780141036144, "1984", "George Orwell", 3)
	alice := addMember(t, db, "Alice")

	if err := db.Fine(ctx, alice, 1); err != nil {
		t.Fatalf("fine: %v", err)
	}
	if err := db.BorrowBook(ctx, 9780141036144, alice); !errors.Is(err, ErrHasFines) {
		t.Fatalf("want ErrHasFines, got %v", err)
	}

	// Paying clears the block.
	if _, err := db.PayFine(ctx, alice); err != nil {
		t.Fatalf("pay fine: %v", err)
	}
	if err := db.BorrowBook(ctx, 9780141036144, alice); err != nil {
		t.Fatalf("borrow after paying: %v", err)
	}
}

func TestBorrowLimitEnforced(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	alice := addMember(t, db, "Alice")
	isbns := []int64{9780000000001, 9780000000002, 9780000000003, 9780000000004}
	for _, isbn := range isbns {
		addBook(t, db, isbn, "Title", "Author", 1)
	}

	for _, isbn := range isbns[:3] {
		if err := db.BorrowBook(ctx, isbn, alice); err != nil {
			t.Fatalf("borrow %d: %v", isbn, err)
		}
	}
	if err := db.BorrowBook(ctx, isbns[3], alice); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("want ErrLimitReached, got %v", err)
	}

	// Returning one frees a slot.
	if err := db.ReturnBook(ctx, isbns[0], alice); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := db.BorrowBook(ctx, isbns[3], alice); err != nil {
		t.Fatalf("borrow after return: %v", err)
	}
}

func TestRejectionOrderStockBeforeFines(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780141036144, "1984", "George Orwell", 1)
	alice := addMember(t, db, "Alice")
	bob := addMember(t, db, "Bob")

	if err := db.BorrowBook(ctx, 9780141036144, alice); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if err := db.Fine(ctx, bob, 1); err != nil {
		t.Fatalf("fine: %v", err)
	}

	// Bob is both fined and facing an empty shelf; stock is checked first.
	if err := db.BorrowBook(ctx, 9780141036144, bob); !errors.Is(err, ErrNoStock) {
		t.Fatalf("want ErrNoStock, got %v", err)
	}
}

func TestReturnNotOnLoanIsHardRejection(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780141036144, "1984", "George Orwell", 2)
	alice := addMember(t, db, "Alice")
	bob := addMember(t, db, "Bob")

	if err := db.BorrowBook(ctx, 9780141036144, alice); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// Bob never borrowed it; nothing may change.
	if err := db.ReturnBook(ctx, 9780141036144, bob); !errors.Is(err, ErrNotOnLoan) {
		t.Fatalf("want ErrNotOnLoan, got %v", err)
	}
	loans, err := db.GetOpenLoans(ctx)
	if err != nil {
		t.Fatalf("open loans: %v", err)
	}
	if len(loans) != 1 || loans[0].MemberID != alice {
		t.Fatalf("alice's loan must remain open, got %+v", loans)
	}
}

func TestBorrowUnknownIdentifiers(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780141036144, "1984", "George Orwell", 1)
	alice := addMember(t, db, "Alice")

	if err := db.BorrowBook(ctx, 9999999999999, alice); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown book: want ErrNotFound, got %v", err)
	}
	if err := db.BorrowBook(ctx, 9780141036144, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown member: want ErrNotFound, got %v", err)
	}
}

func TestLoanHistoryRetainedAcrossCycles(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780141036144, "1984", "George Orwell", 1)
	alice := addMember(t, db, "Alice")

	// Same pair borrows and returns twice; both ledger rows survive.
	for i := 0; i < 2; i++ {
		if err := db.BorrowBook(ctx, 9780141036144, alice); err != nil {
			t.Fatalf("borrow cycle %d: %v", i, err)
		}
		if err := db.ReturnBook(ctx, 9780141036144, alice); err != nil {
			t.Fatalf("return cycle %d: %v", i, err)
		}
	}

	var rows int
	err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE isbn = ? AND user_id = ?`,
		int64(9780141036144), alice).Scan(&rows)
	if err != nil {
		t.Fatalf("count records: %v", err)
	}
	if rows != 2 {
		t.Fatalf("want 2 ledger rows, got %d", rows)
	}

	avail, err := db.Available(ctx, 9780141036144)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if avail != 1 {
		t.Fatalf("want 1 available after both returns, got %d", avail)
	}

	history, err := db.GetLoanHistory(ctx, alice)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("want 2 history rows, got %d", len(history))
	}
	for _, l := range history {
		if !l.Returned || l.CheckedIn == nil {
			t.Fatalf("history row not closed: %+v", l)
		}
	}
}

func TestMemberOpenLoanListing(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	addBook(t, db, 9780000000001, "First", "Author", 1)
	addBook(t, db, 9780000000002, "Second", "Author", 1)
	alice := addMember(t, db, "Alice")
	bob := addMember(t, db, "Bob")

	if err := db.BorrowBook(ctx, 9780000000001, alice); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if err := db.BorrowBook(ctx, 9780000000002, bob); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	loans, err := db.GetMemberOpenLoans(ctx, alice)
	if err != nil {
		t.Fatalf("member loans: %v", err)
	}
	if len(loans) != 1 || loans[0].ISBN != 9780000000001 || loans[0].Title != "First" {
		t.Fatalf("unexpected loans for alice: %+v", loans)
	}
}
