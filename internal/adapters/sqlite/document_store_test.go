package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/libraryapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
	"github.com/atvirokodosprendimai/libraryapi/migrations"
)

func openTestDB(t *testing.T) *gormsqlite.DB {
	t.Helper()
	ctx := context.Background()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "test.sqlite"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	writer, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer db: %v", err)
	}
	if err := migrations.Up(ctx, writer); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testBook(title string) domain.Book {
	authorID, _ := domain.ParseID("665f6a0f2c3d4b1a9f0a1234")
	return domain.Book{
		Title:         title,
		ISBN:          "9780547928227",
		AuthorID:      authorID,
		PublishedYear: 1937,
		Genres:        []string{"Fantasy"},
		Pages:         310,
		InStock:       true,
		Price:         14.99,
	}
}

func TestDocumentStoreInsertFindReplaceDelete(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore[domain.Book](openTestDB(t), "books")

	id, err := store.InsertOne(ctx, testBook("The Hobbit"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == domain.NilID {
		t.Fatal("expected store-assigned id")
	}

	got, err := store.FindOne(ctx, id)
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if got.ID != id || got.Title != "The Hobbit" || got.Pages != 310 {
		t.Fatalf("unexpected book: %+v", got)
	}

	replacement := testBook("The Lord of the Rings")
	replacement.Pages = 1178
	matched, err := store.ReplaceOne(ctx, id, replacement)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if matched != 1 {
		t.Fatalf("expected 1 matched, got %d", matched)
	}

	got, err = store.FindOne(ctx, id)
	if err != nil {
		t.Fatalf("find after replace: %v", err)
	}
	if got.ID != id || got.Title != "The Lord of the Rings" || got.Pages != 1178 {
		t.Fatalf("replace did not overwrite: %+v", got)
	}

	deleted, err := store.DeleteOne(ctx, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	deleted, err = store.DeleteOne(ctx, id)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected 0 deleted, got %d", deleted)
	}

	if _, err := store.FindOne(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDocumentStoreReplaceUnknownMatchesNothing(t *testing.T) {
	store := NewDocumentStore[domain.Book](openTestDB(t), "books")

	matched, err := store.ReplaceOne(context.Background(), domain.NewID(), testBook("Nothing"))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected 0 matched, got %d", matched)
	}
}

func TestDocumentStoreCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	books := NewDocumentStore[domain.Book](db, "books")
	authors := NewDocumentStore[domain.Author](db, "authors")

	for _, title := range []string{"A", "B"} {
		if _, err := books.InsertOne(ctx, testBook(title)); err != nil {
			t.Fatalf("insert book %s: %v", title, err)
		}
	}
	authorID, err := authors.InsertOne(ctx, domain.Author{
		FirstName:   "J.R.R.",
		LastName:    "Tolkien",
		Email:       "tolkien@example.com",
		Birthdate:   time.Date(1892, time.January, 3, 0, 0, 0, 0, time.UTC),
		Nationality: "British",
	})
	if err != nil {
		t.Fatalf("insert author: %v", err)
	}

	all, err := books.Find(ctx)
	if err != nil {
		t.Fatalf("find books: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 books, got %d", len(all))
	}
	if all[0].Title != "A" || all[1].Title != "B" {
		t.Fatalf("unexpected order: %s, %s", all[0].Title, all[1].Title)
	}

	if _, err := books.FindOne(ctx, authorID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("author id must not resolve in books: %v", err)
	}

	author, err := authors.FindOne(ctx, authorID)
	if err != nil {
		t.Fatalf("find author: %v", err)
	}
	if !author.Birthdate.Equal(time.Date(1892, time.January, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected birthdate: %v", author.Birthdate)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	writer, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer db: %v", err)
	}
	if err := migrations.Up(context.Background(), writer); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
