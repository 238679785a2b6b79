package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"library-circulation/config"
	"library-circulation/library"
)

// The CLI is deliberately thin: it resolves identifiers (including the
// simulated card/book scans), invokes one core operation, and renders the
// result. All circulation rules live in the library package.

var (
	db     *library.Database
	logger *zap.Logger
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "librarian",
		Short:         "Track book stock, members, loans, fines and rewards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// No .env file is fine; plain environment variables apply.
			_ = godotenv.Load()
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			logger, err = newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			db, err = library.NewDatabase(cfg.DBPath, logger)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if db != nil {
				db.Close()
			}
			if logger != nil {
				logger.Sync()
			}
		},
	}

	root.AddCommand(
		newSearchCmd(),
		newBorrowCmd(),
		newReturnCmd(),
		newPayFineCmd(),
		newAddBookCmd(),
		newRemoveBookCmd(),
		newAddMemberCmd(),
		newBooksCmd(),
		newBookCmd(),
		newLoansCmd(),
		newHistoryCmd(),
		newMembersCmd(),
	)
	return root
}

// ---------------------------------------------------------------------------
// Scan simulation
//
// Passing 0 for an ISBN or member number "scans" one at random, like holding
// a barcode up to the reader. Pure presentation; the core never does this.
// ---------------------------------------------------------------------------

func scanAnyISBN(ctx context.Context) (int64, error) {
	books, err := db.GetAllBooks(ctx)
	if err != nil {
		return 0, err
	}
	if len(books) == 0 {
		return 0, errors.New("the catalog is empty")
	}
	isbn := books[rand.Intn(len(books))].ISBN
	fmt.Printf("*Beep!* ISBN %d\n", isbn)
	return isbn, nil
}

func scanShelfISBN(ctx context.Context) (int64, error) {
	books, err := db.GetAllBooks(ctx)
	if err != nil {
		return 0, err
	}
	var onShelf []int64
	for _, b := range books {
		if b.OnShelf > 0 {
			onShelf = append(onShelf, b.ISBN)
		}
	}
	if len(onShelf) == 0 {
		return 0, errors.New("no books on the shelf to scan")
	}
	isbn := onShelf[rand.Intn(len(onShelf))]
	fmt.Printf("*Beep!* ISBN %d\n", isbn)
	return isbn, nil
}

func scanMemberCard(ctx context.Context) (int64, error) {
	members, err := db.GetAllMembers(ctx)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, errors.New("no members registered")
	}
	id := members[rand.Intn(len(members))].ID
	fmt.Printf("*Beep!* Card %d accepted.\n", id)
	return id, nil
}

func scanMemberLoan(ctx context.Context, memberID int64) (int64, error) {
	loans, err := db.GetMemberOpenLoans(ctx, memberID)
	if err != nil {
		return 0, err
	}
	if len(loans) == 0 {
		return 0, fmt.Errorf("member %d has no books on loan", memberID)
	}
	isbn := loans[rand.Intn(len(loans))].ISBN
	fmt.Printf("*Beep!* ISBN %d\n", isbn)
	return isbn, nil
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func newSearchCmd() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the catalog by title or author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var field library.SearchField
			switch by {
			case "title":
				field = library.SearchByTitle
			case "author":
				field = library.SearchByAuthor
			default:
				return fmt.Errorf("--by must be title or author, got %q", by)
			}
			books, err := db.SearchBooks(cmd.Context(), field, args[0])
			if err != nil {
				return friendly(err)
			}
			if len(books) == 0 {
				fmt.Println("No books were found matching your search term.")
				return nil
			}
			for _, b := range books {
				fmt.Printf("%-15d %-40s %s\n", b.ISBN, b.Title, b.Author)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", "title", "search field: title or author")
	return cmd
}

func newBorrowCmd() *cobra.Command {
	var isbn, member int64
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Check a book out to a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if isbn == 0 {
				if isbn, err = scanShelfISBN(ctx); err != nil {
					return err
				}
			}
			if member == 0 {
				if member, err = scanMemberCard(ctx); err != nil {
					return err
				}
			}
			if err := printBookRecord(ctx, isbn); err != nil {
				return friendly(err)
			}
			if err := db.BorrowBook(ctx, isbn, member); err != nil {
				return friendly(err)
			}
			fmt.Printf("Member %d successfully checked out %d.\n", member, isbn)
			return nil
		},
	}
	cmd.Flags().Int64Var(&isbn, "isbn", 0, "book ISBN (0 scans one from the shelf)")
	cmd.Flags().Int64Var(&member, "member", 0, "member card number (0 scans a card)")
	return cmd
}

func newReturnCmd() *cobra.Command {
	var isbn, member int64
	var late bool
	cmd := &cobra.Command{
		Use:   "return",
		Short: "Check a book back in, rewarding or fining the member",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if member == 0 {
				if member, err = scanMemberCard(ctx); err != nil {
					return err
				}
			}
			if isbn == 0 {
				if isbn, err = scanMemberLoan(ctx, member); err != nil {
					return err
				}
			}
			if err := db.ReturnBook(ctx, isbn, member); err != nil {
				return friendly(err)
			}
			fmt.Println("Book successfully returned.")

			// The core does not judge lateness; the desk clerk does.
			if late {
				if err := db.Fine(ctx, member, 1); err != nil {
					return friendly(err)
				}
				fmt.Println("Fine has been issued.")
				return nil
			}
			m, promoted, err := db.Reward(ctx, member)
			if err != nil {
				return friendly(err)
			}
			fmt.Println("Reward point earned!")
			if promoted {
				fmt.Printf("Congratulations to %s! They can now borrow %d books!\n",
					m.Name, m.BorrowLimit)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&isbn, "isbn", 0, "book ISBN (0 scans one of the member's loans)")
	cmd.Flags().Int64Var(&member, "member", 0, "member card number (0 scans a card)")
	cmd.Flags().BoolVar(&late, "late", false, "the book came back late")
	return cmd
}

func newPayFineCmd() *cobra.Command {
	var member int64
	cmd := &cobra.Command{
		Use:   "pay-fine",
		Short: "Clear a member's outstanding fines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if member == 0 {
				if member, err = scanMemberCard(ctx); err != nil {
					return err
				}
			}
			amount, err := db.PayFine(ctx, member)
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("Please pay %.2f.\n*Beep!*\nFines successfully paid.\n", amount)
			return nil
		},
	}
	cmd.Flags().Int64Var(&member, "member", 0, "member card number (0 scans a card)")
	return cmd
}

func newAddBookCmd() *cobra.Command {
	var isbn int64
	var title, author string
	var copies int
	var scan bool
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add copies of a book to the stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if scan {
				if isbn, err = scanAnyISBN(ctx); err != nil {
					return err
				}
			}
			if isbn == 0 {
				return errors.New("an ISBN is required (or --scan an existing one)")
			}
			created, err := db.AddStock(ctx, isbn, title, author, copies)
			if err != nil {
				return friendly(err)
			}
			if created {
				fmt.Printf("%d copies of %s added to the catalog.\n", copies, title)
			} else {
				fmt.Println("Stock updated.")
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&isbn, "isbn", 0, "book ISBN")
	cmd.Flags().StringVar(&title, "title", "", "book title (new books only)")
	cmd.Flags().StringVar(&author, "author", "", "book author (new books only)")
	cmd.Flags().IntVar(&copies, "copies", 1, "number of copies to add")
	cmd.Flags().BoolVar(&scan, "scan", false, "scan a random ISBN from the catalog")
	return cmd
}

func newRemoveBookCmd() *cobra.Command {
	var isbn, responsible int64
	cmd := &cobra.Command{
		Use:   "remove-book",
		Short: "Strike one lost or damaged copy from the stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if isbn == 0 {
				if isbn, err = scanAnyISBN(ctx); err != nil {
					return err
				}
			}
			if err := printBookRecord(ctx, isbn); err != nil {
				return friendly(err)
			}
			if err := db.RemoveCopy(ctx, isbn, responsible); err != nil {
				return friendly(err)
			}
			fmt.Println("One copy successfully removed from the stock record.")
			if responsible != 0 {
				fmt.Printf("Member %d has been fined for the lost copy.\n", responsible)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&isbn, "isbn", 0, "book ISBN (0 scans one from the catalog)")
	cmd.Flags().Int64Var(&responsible, "responsible", 0,
		"member who lost or damaged the copy; their loan is closed and they are fined")
	return cmd
}

func newAddMemberCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Register a new library member",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			id, err := db.AddMember(cmd.Context(), name)
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("Membership number %d, %s added to the database.\n", id, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "member's name")
	return cmd
}

func newBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List the whole catalog with stock and on-shelf counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := db.GetAllBooks(cmd.Context())
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("%-15s %-6s %-8s %-40s %s\n", "ISBN", "Stock", "OnShelf", "Title", "Author")
			for _, b := range books {
				fmt.Printf("%-15d %-6d %-8d %-40s %s\n", b.ISBN, b.Stock, b.OnShelf, b.Title, b.Author)
			}
			return nil
		},
	}
}

func newBookCmd() *cobra.Command {
	var isbn int64
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Show one book's record",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if isbn == 0 {
				if isbn, err = scanAnyISBN(ctx); err != nil {
					return err
				}
			}
			return friendly(printBookRecord(ctx, isbn))
		},
	}
	cmd.Flags().Int64Var(&isbn, "isbn", 0, "book ISBN (0 scans one from the catalog)")
	return cmd
}

func newLoansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loans",
		Short: "List every book currently out on loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			loans, err := db.GetOpenLoans(cmd.Context())
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("%-15s %-40s %-25s %-6s %-20s %s\n",
				"ISBN", "Title", "Author", "Card", "Name", "Borrowed")
			for _, l := range loans {
				fmt.Printf("%-15d %-40s %-25s %-6d %-20s %s\n",
					l.ISBN, l.Title, l.Author, l.MemberID, l.MemberName,
					l.CheckedOut.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var member int64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a member's full borrowing history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if member == 0 {
				if member, err = scanMemberCard(ctx); err != nil {
					return err
				}
			}
			history, err := db.GetLoanHistory(ctx, member)
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("%-15s %-12s %-12s %s\n", "ISBN", "Out", "In", "Returned")
			for _, l := range history {
				in := "-"
				if l.CheckedIn != nil {
					in = l.CheckedIn.Format("2006-01-02")
				}
				fmt.Printf("%-15d %-12s %-12s %t\n",
					l.ISBN, l.CheckedOut.Format("2006-01-02"), in, l.Returned)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&member, "member", 0, "member card number (0 scans a card)")
	return cmd
}

func newMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List all library members",
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := db.GetAllMembers(cmd.Context())
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("%-6s %-25s %-6s %-8s %s\n", "Card", "Name", "Fines", "Rewards", "Limit")
			for _, m := range members {
				fmt.Printf("%-6d %-25s %-6d %-8d %d\n", m.ID, m.Name, m.Fines, m.Rewards, m.BorrowLimit)
			}
			return nil
		},
	}
}

func printBookRecord(ctx context.Context, isbn int64) error {
	status, err := db.GetBookStatus(ctx, isbn)
	if err != nil {
		return err
	}
	fmt.Printf("%-15s %-40s %-25s %s\n", "ISBN", "Title", "Author", "Available")
	fmt.Printf("%-15d %-40s %-25s %d\n", status.ISBN, status.Title, status.Author, status.OnShelf)
	return nil
}

// friendly maps core rejections to the messages the desk staff expect.
func friendly(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, library.ErrNotFound):
		return errors.New("that ISBN or member number is not in the database")
	case errors.Is(err, library.ErrNoStock):
		return errors.New("all copies are currently out on loan or stock is empty")
	case errors.Is(err, library.ErrAlreadyHeld):
		return errors.New("this member already has a copy on loan")
	case errors.Is(err, library.ErrHasFines):
		return errors.New("outstanding fines must be paid before borrowing")
	case errors.Is(err, library.ErrLimitReached):
		return errors.New("this member has reached their borrowing limit")
	case errors.Is(err, library.ErrNotOnLoan):
		return errors.New("this member does not have that book on loan")
	case errors.Is(err, library.ErrNoFineDue):
		return errors.New("no fines to pay")
	case errors.Is(err, library.ErrInvalidQuantity):
		return errors.New("the quantity must be a positive whole number")
	default:
		return err
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
