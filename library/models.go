package library

import "time"

// Book describes one title in the catalog. Stock is the number of copies the
// library owns, independent of how many are currently out on loan.
type Book struct {
	ISBN   int64  `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Stock  int    `json:"stock"`
}

// BookStatus is a Book together with the derived on-shelf count used by
// catalog listings.
type BookStatus struct {
	Book
	OnShelf int `json:"on_shelf"`
}

// Member represents a registered library member. Fines counts unpaid fine
// units (billed at FineUnitRate each); any nonzero balance blocks borrowing.
type Member struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Fines       int    `json:"fines"`
	Rewards     int    `json:"rewards"`
	BorrowLimit int    `json:"borrow_limit"`
}

// Loan is one row of the circulation ledger. Rows are appended on borrow and
// closed exactly once on return; they are never deleted, so repeated borrow
// cycles of the same book by the same member keep their full history.
type Loan struct {
	ISBN       int64      `json:"isbn"`
	MemberID   int64      `json:"member_id"`
	CheckedOut time.Time  `json:"date_checked_out"`
	CheckedIn  *time.Time `json:"date_checked_in,omitempty"`
	Returned   bool       `json:"returned"`
}

// OpenLoan is a ledger row joined with book and member data for display.
type OpenLoan struct {
	ISBN       int64     `json:"isbn"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	MemberID   int64     `json:"member_id"`
	MemberName string    `json:"member_name"`
	CheckedOut time.Time `json:"date_checked_out"`
}
