package domain

import "time"

// Book is a stored book record. AuthorID is checked for form only.
type Book struct {
	ID            ID       `json:"id" bson:"_id,omitempty"`
	Title         string   `json:"title" bson:"title"`
	ISBN          string   `json:"isbn" bson:"isbn"`
	AuthorID      ID       `json:"authorId" bson:"authorId"`
	PublishedYear int      `json:"publishedYear" bson:"publishedYear"`
	Genres        []string `json:"genres" bson:"genres"`
	Pages         int      `json:"pages" bson:"pages"`
	InStock       bool     `json:"inStock" bson:"inStock"`
	Price         float64  `json:"price" bson:"price"`
}

func (b *Book) SetDocumentID(id ID) { b.ID = id }

// Author is a stored author record. Birthdate holds a calendar date at UTC midnight.
type Author struct {
	ID          ID        `json:"id" bson:"_id,omitempty"`
	FirstName   string    `json:"firstName" bson:"firstName"`
	LastName    string    `json:"lastName" bson:"lastName"`
	Email       string    `json:"email" bson:"email"`
	Birthdate   time.Time `json:"birthdate" bson:"birthdate"`
	Nationality string    `json:"nationality" bson:"nationality"`
	Website     string    `json:"website,omitempty" bson:"website,omitempty"`
}

func (a *Author) SetDocumentID(id ID) { a.ID = id }

// Document is implemented by pointers to every persisted record type.
type Document[T any] interface {
	*T
	SetDocumentID(id ID)
}
