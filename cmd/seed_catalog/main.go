package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"library-circulation/library"
)

// Seeds a fresh database with a small catalog and membership for trying the
// CLI out. Wipes any existing database first.

type seedBook struct {
	isbn   int64
	title  string
	author string
	copies int
}

var catalog = []seedBook{
	{9780141036144, "1984", "George Orwell", 3},
	{9780141036137, "Animal Farm", "George Orwell", 2},
	{9780241952443, "The Diary of a Young Girl", "Anne Frank", 1},
	{9781590302255, "The Art of War", "Sun Tzu", 2},
	{9780261103573, "The Fellowship of the Ring", "J.R.R. Tolkien", 2},
	{9780747538493, "Harry Potter and the Chamber of Secrets", "J.K. Rowling", 4},
	{9780141439518, "Pride and Prejudice", "Jane Austen", 2},
	{9780743273565, "The Great Gatsby", "F. Scott Fitzgerald", 1},
}

var members = []string{"Alice Munro", "Ben Okri", "Chinua Achebe", "Doris Lessing"}

func main() {
	fmt.Println("Cleaning up existing database files...")
	for _, file := range []string{"library.db", "library.db-shm", "library.db-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: could not remove %s: %v\n", file, err)
		}
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := library.NewDatabase("library.db", logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	for _, b := range catalog {
		if _, err := db.AddStock(ctx, b.isbn, b.title, b.author, b.copies); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding %s: %v\n", b.title, err)
			os.Exit(1)
		}
	}
	for _, name := range members {
		if _, err := db.AddMember(ctx, name); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding member %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Seeded %d titles and %d members into library.db.\n", len(catalog), len(members))
}
