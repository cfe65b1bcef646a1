package model

import (
	apperrors "mongodb-rest/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the document field holding the identifier
const IDField = "_id"

// DocumentID is the store-native document identifier. Its only textual form
// is produced by EncodeID and read back by DecodeID.
type DocumentID struct {
	oid primitive.ObjectID
}

// NewDocumentID generates a fresh identifier
func NewDocumentID() DocumentID {
	return DocumentID{oid: primitive.NewObjectID()}
}

// DocumentIDFromObjectID adopts an identifier produced by the store
func DocumentIDFromObjectID(oid primitive.ObjectID) DocumentID {
	return DocumentID{oid: oid}
}

// ObjectID exposes the native value for the store adapter
func (id DocumentID) ObjectID() primitive.ObjectID {
	return id.oid
}

// String returns the canonical encoding
func (id DocumentID) String() string {
	return EncodeID(id)
}

// EncodeID returns the canonical 24-character lower-case hex form of id
func EncodeID(id DocumentID) string {
	return id.oid.Hex()
}

// DecodeID parses the textual form of an identifier. Hex digits are accepted
// in either case; anything else, or any length other than 24, is rejected.
func DecodeID(text string) (DocumentID, error) {
	oid, err := primitive.ObjectIDFromHex(text)
	if err != nil {
		return DocumentID{}, apperrors.NewInvalidIdentifierError(text)
	}
	return DocumentID{oid: oid}, nil
}
