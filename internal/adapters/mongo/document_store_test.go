package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

// Runs against a live server only when LIBRARYAPI_MONGO_URI is set.
func testClient(t *testing.T) *Client {
	t.Helper()
	uri := os.Getenv("LIBRARYAPI_MONGO_URI")
	if uri == "" {
		t.Skip("LIBRARYAPI_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := Connect(ctx, uri, "libraryapi_test_"+domain.NewID().Hex())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = client.database.Drop(context.Background())
		_ = client.Close()
	})
	return client
}

func TestConnectRequiresDatabase(t *testing.T) {
	if _, err := Connect(context.Background(), "mongodb://localhost:27017", ""); err == nil {
		t.Fatal("expected error for empty database name")
	}
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore[domain.Author](testClient(t), "authors")

	birthdate := time.Date(1892, time.January, 3, 0, 0, 0, 0, time.UTC)
	id, err := store.InsertOne(ctx, domain.Author{
		FirstName:   "J.R.R.",
		LastName:    "Tolkien",
		Email:       "tolkien@example.com",
		Birthdate:   birthdate,
		Nationality: "British",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.FindOne(ctx, id)
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if got.ID != id || !got.Birthdate.Equal(birthdate) {
		t.Fatalf("unexpected author: %+v", got)
	}

	matched, err := store.ReplaceOne(ctx, domain.NewID(), got)
	if err != nil {
		t.Fatalf("replace unknown: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected 0 matched, got %d", matched)
	}

	deleted, err := store.DeleteOne(ctx, id)
	if err != nil || deleted != 1 {
		t.Fatalf("delete: %d %v", deleted, err)
	}
	if _, err := store.FindOne(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
