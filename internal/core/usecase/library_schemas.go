package usecase

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

const (
	minPublishedYear = 1400
	maxPages         = math.MaxInt32
)

// BookSchema validates book payloads. publishedYear may not exceed next year.
var BookSchema = ResourceSchema[domain.Book]{
	Name: "book",
	Adjust: func(doc map[string]any, now time.Time) {
		if prop := schemaProperty(doc, "publishedYear"); prop != nil {
			prop["minimum"] = minPublishedYear
			prop["maximum"] = MaxPublishedYear(now)
		}
	},
	Convert: convertBook,
}

// AuthorSchema validates author payloads. birthdate may not be in the future.
var AuthorSchema = ResourceSchema[domain.Author]{
	Name:    "author",
	Convert: convertAuthor,
}

// MaxPublishedYear is the latest publication year accepted at now.
func MaxPublishedYear(now time.Time) int {
	return now.Year() + 1
}

type bookInput struct {
	Title         string      `json:"title"`
	ISBN          string      `json:"isbn"`
	AuthorID      string      `json:"authorId"`
	PublishedYear json.Number `json:"publishedYear"`
	Genres        []string    `json:"genres"`
	Pages         json.Number `json:"pages"`
	InStock       bool        `json:"inStock"`
	Price         json.Number `json:"price"`
}

func convertBook(normalized []byte, now time.Time) (domain.Book, domain.FieldErrors, error) {
	var in bookInput
	if err := json.Unmarshal(normalized, &in); err != nil {
		return domain.Book{}, nil, err
	}

	var violations domain.FieldErrors
	authorID, err := domain.ParseID(in.AuthorID)
	if err != nil {
		violations = append(violations, domain.FieldError{Field: "authorId", Message: "must be a 24 character hex identifier"})
	}

	year, ok := intInRange(in.PublishedYear, minPublishedYear, MaxPublishedYear(now))
	if !ok {
		violations = append(violations, domain.FieldError{Field: "publishedYear", Message: "is out of range"})
	}
	pages, ok := intInRange(in.Pages, 1, maxPages)
	if !ok {
		violations = append(violations, domain.FieldError{Field: "pages", Message: "is out of range"})
	}
	price, err := strconv.ParseFloat(in.Price.String(), 64)
	if err != nil || price < 0 {
		violations = append(violations, domain.FieldError{Field: "price", Message: "is out of range"})
	}

	genres := make([]string, len(in.Genres))
	copy(genres, in.Genres)

	return domain.Book{
		Title:         in.Title,
		ISBN:          in.ISBN,
		AuthorID:      authorID,
		PublishedYear: year,
		Genres:        genres,
		Pages:         pages,
		InStock:       in.InStock,
		Price:         price,
	}, violations, nil
}

// intInRange reads a JSON integer, which may be written with a fraction or
// exponent, and reports whether it lies within [lo, hi].
func intInRange(n json.Number, lo, hi int) (int, bool) {
	if v, err := n.Int64(); err == nil {
		if v < int64(lo) || v > int64(hi) {
			return 0, false
		}
		return int(v), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < float64(lo) || f > float64(hi) {
		return 0, false
	}
	return int(f), true
}

type authorInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Birthdate   string `json:"birthdate"`
	Nationality string `json:"nationality"`
	Website     string `json:"website"`
}

func convertAuthor(normalized []byte, now time.Time) (domain.Author, domain.FieldErrors, error) {
	var in authorInput
	if err := json.Unmarshal(normalized, &in); err != nil {
		return domain.Author{}, nil, err
	}

	var violations domain.FieldErrors
	birthdate, ok := parseCalendarDate(in.Birthdate)
	switch {
	case !ok:
		violations = append(violations, domain.FieldError{Field: "birthdate", Message: "must be a date (YYYY-MM-DD)"})
	case birthdate.After(calendarDate(now)):
		violations = append(violations, domain.FieldError{Field: "birthdate", Message: "must not be in the future"})
	}

	return domain.Author{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       strings.ToLower(in.Email),
		Birthdate:   birthdate,
		Nationality: in.Nationality,
		Website:     in.Website,
	}, violations, nil
}

// parseCalendarDate accepts YYYY-MM-DD or RFC 3339 and keeps only the date.
func parseCalendarDate(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func calendarDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
