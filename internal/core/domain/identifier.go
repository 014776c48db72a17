package domain

import (
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ID is the store-native record identifier. Its wire form is 24 hex characters.
type ID = primitive.ObjectID

// NilID is the zero identifier; no stored record ever carries it.
var NilID = primitive.NilObjectID

// ParseID converts the wire form of an identifier into an ID.
// Hex digits are accepted in either case; the canonical wire form is lowercase.
func ParseID(raw string) (ID, error) {
	if !identifierPattern.MatchString(raw) {
		return NilID, ErrInvalidIdentifier
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return NilID, ErrInvalidIdentifier
	}
	return id, nil
}

func NewID() ID {
	return primitive.NewObjectID()
}
