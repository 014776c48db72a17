package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

type stubBookStore struct {
	findFn    func(ctx context.Context) ([]domain.Book, error)
	findOneFn func(ctx context.Context, id domain.ID) (domain.Book, error)
	insertFn  func(ctx context.Context, doc domain.Book) (domain.ID, error)
	replaceFn func(ctx context.Context, id domain.ID, doc domain.Book) (int64, error)
	deleteFn  func(ctx context.Context, id domain.ID) (int64, error)
	calls     int
}

func (s *stubBookStore) Find(ctx context.Context) ([]domain.Book, error) {
	s.calls++
	if s.findFn != nil {
		return s.findFn(ctx)
	}
	return nil, nil
}

func (s *stubBookStore) FindOne(ctx context.Context, id domain.ID) (domain.Book, error) {
	s.calls++
	if s.findOneFn != nil {
		return s.findOneFn(ctx, id)
	}
	return domain.Book{}, domain.ErrNotFound
}

func (s *stubBookStore) InsertOne(ctx context.Context, doc domain.Book) (domain.ID, error) {
	s.calls++
	if s.insertFn != nil {
		return s.insertFn(ctx, doc)
	}
	return domain.NewID(), nil
}

func (s *stubBookStore) ReplaceOne(ctx context.Context, id domain.ID, doc domain.Book) (int64, error) {
	s.calls++
	if s.replaceFn != nil {
		return s.replaceFn(ctx, id, doc)
	}
	return 0, nil
}

func (s *stubBookStore) DeleteOne(ctx context.Context, id domain.ID) (int64, error) {
	s.calls++
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return 0, nil
}

func newBookService(t *testing.T, store *stubBookStore) *RecordService[domain.Book] {
	t.Helper()
	return NewRecordService[domain.Book]("Book", store, newBookSchema(t))
}

const knownID = "665f6a0f2c3d4b1a9f0a1234"

func TestRecordServiceListNeverNil(t *testing.T) {
	books, err := newBookService(t, &stubBookStore{}).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if books == nil || len(books) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", books)
	}
}

func TestRecordServiceGet(t *testing.T) {
	store := &stubBookStore{findOneFn: func(_ context.Context, id domain.ID) (domain.Book, error) {
		if id.Hex() == knownID {
			return domain.Book{ID: id, Title: "The Hobbit"}, nil
		}
		return domain.Book{}, domain.ErrNotFound
	}}
	svc := newBookService(t, store)

	book, err := svc.Get(context.Background(), "665F6A0F2C3D4B1A9F0A1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if book.Title != "The Hobbit" {
		t.Fatalf("unexpected book %+v", book)
	}

	_, err = svc.Get(context.Background(), "665f6a0f2c3d4b1a9f0a9999")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Error() != "Book not found" {
		t.Fatalf("expected Book not found, got %v", err)
	}
}

func TestRecordServiceRejectsBadIdentifierBeforeStore(t *testing.T) {
	store := &stubBookStore{}
	svc := newBookService(t, store)
	ctx := context.Background()

	for _, raw := range []string{"", "xyz", "665f6a0f2c3d4b1a9f0a123", "665f6a0f2c3d4b1a9f0a12345", "665f6a0f2c3d4b1a9f0a123g"} {
		if _, err := svc.Get(ctx, raw); !errors.Is(err, domain.ErrInvalidIdentifier) {
			t.Fatalf("get %q: expected ErrInvalidIdentifier, got %v", raw, err)
		}
		if err := svc.Replace(ctx, raw, []byte(validBook)); !errors.Is(err, domain.ErrInvalidIdentifier) {
			t.Fatalf("replace %q: expected ErrInvalidIdentifier, got %v", raw, err)
		}
		if err := svc.Delete(ctx, raw); !errors.Is(err, domain.ErrInvalidIdentifier) {
			t.Fatalf("delete %q: expected ErrInvalidIdentifier, got %v", raw, err)
		}
	}
	if store.calls != 0 {
		t.Fatalf("store must not be touched, got %d calls", store.calls)
	}
}

func TestRecordServiceCreate(t *testing.T) {
	var inserted domain.Book
	assigned := domain.NewID()
	store := &stubBookStore{insertFn: func(_ context.Context, doc domain.Book) (domain.ID, error) {
		inserted = doc
		return assigned, nil
	}}
	svc := newBookService(t, store)

	id, err := svc.Create(context.Background(), []byte(validBook))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != assigned || inserted.Title != "The Hobbit" {
		t.Fatalf("unexpected insert: id=%s doc=%+v", id.Hex(), inserted)
	}

	store.calls = 0
	_, err = svc.Create(context.Background(), []byte(`{"title":"x"}`))
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("invalid payload must not reach the store")
	}
}

func TestRecordServiceReplace(t *testing.T) {
	store := &stubBookStore{replaceFn: func(_ context.Context, id domain.ID, _ domain.Book) (int64, error) {
		if id.Hex() == knownID {
			return 1, nil
		}
		return 0, nil
	}}
	svc := newBookService(t, store)

	if err := svc.Replace(context.Background(), knownID, []byte(validBook)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	err := svc.Replace(context.Background(), "665f6a0f2c3d4b1a9f0a9999", []byte(validBook))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordServiceDelete(t *testing.T) {
	remaining := map[string]bool{knownID: true}
	store := &stubBookStore{deleteFn: func(_ context.Context, id domain.ID) (int64, error) {
		if remaining[id.Hex()] {
			delete(remaining, id.Hex())
			return 1, nil
		}
		return 0, nil
	}}
	svc := newBookService(t, store)

	if err := svc.Delete(context.Background(), knownID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.Delete(context.Background(), knownID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestRecordServiceWrapsStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	store := &stubBookStore{
		findFn:    func(context.Context) ([]domain.Book, error) { return nil, boom },
		findOneFn: func(context.Context, domain.ID) (domain.Book, error) { return domain.Book{}, boom },
		insertFn:  func(context.Context, domain.Book) (domain.ID, error) { return domain.NilID, boom },
		replaceFn: func(context.Context, domain.ID, domain.Book) (int64, error) { return 0, boom },
		deleteFn:  func(context.Context, domain.ID) (int64, error) { return 0, boom },
	}
	svc := newBookService(t, store)
	ctx := context.Background()

	_, errList := svc.List(ctx)
	_, errGet := svc.Get(ctx, knownID)
	_, errCreate := svc.Create(ctx, []byte(validBook))
	errReplace := svc.Replace(ctx, knownID, []byte(validBook))
	errDelete := svc.Delete(ctx, knownID)

	for name, err := range map[string]error{"list": errList, "get": errGet, "create": errCreate, "replace": errReplace, "delete": errDelete} {
		if !errors.Is(err, boom) {
			t.Fatalf("%s: expected wrapped store error, got %v", name, err)
		}
		if errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s: store failure must not look like not found", name)
		}
	}
}
