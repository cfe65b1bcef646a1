package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	apperrors "mongodb-rest/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is a schema-less record: field name to scalar, nested document or array
type Document map[string]interface{}

// Acknowledgment confirms a write. OK is 1 when the write took effect and 0
// when no document matched.
type Acknowledgment struct {
	OK int `json:"ok"`

	// ID is the identifier assigned by an insert; it is reported out of band
	ID *DocumentID `json:"-"`
}

// Ack builds an acknowledgment from a matched/affected flag
func Ack(affected bool) Acknowledgment {
	if affected {
		return Acknowledgment{OK: 1}
	}
	return Acknowledgment{OK: 0}
}

// ToWire converts a document read from the store into JSON-safe values.
// Every ObjectID, at any depth, becomes its canonical text encoding.
func ToWire(doc map[string]interface{}) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = wireValue(v)
	}
	return out
}

// ToWireD converts an ordered store document
func ToWireD(doc bson.D) Document {
	out := make(Document, len(doc))
	for _, e := range doc {
		out[e.Key] = wireValue(e.Value)
	}
	return out
}

func wireValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case primitive.ObjectID:
		return EncodeID(DocumentIDFromObjectID(val))
	case primitive.M:
		return map[string]interface{}(ToWire(val))
	case map[string]interface{}:
		return map[string]interface{}(ToWire(val))
	case primitive.D:
		return map[string]interface{}(ToWireD(val))
	case primitive.A:
		return wireSlice(val)
	case []interface{}:
		return wireSlice(val)
	case primitive.DateTime:
		return val.Time().UTC()
	case time.Time:
		return val.UTC()
	case primitive.Timestamp:
		return map[string]interface{}{"t": val.T, "i": val.I}
	case primitive.Decimal128:
		return val.String()
	case primitive.Binary:
		return val.Data
	case primitive.Regex:
		return fmt.Sprintf("/%s/%s", val.Pattern, val.Options)
	case primitive.JavaScript:
		return string(val)
	case primitive.Symbol:
		return string(val)
	case primitive.Null, primitive.Undefined:
		return nil
	case primitive.MinKey:
		return "$minKey"
	case primitive.MaxKey:
		return "$maxKey"
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Sprint(val)
		}
		return val
	case float32:
		return wireValue(float64(val))
	default:
		return val
	}
}

func wireSlice(in []interface{}) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = wireValue(v)
	}
	return out
}

// FromWire converts a request body into a store document. A top-level
// string "_id" is decoded into a DocumentID; numbers become int64 when
// integral and float64 otherwise.
func FromWire(body map[string]interface{}) (bson.M, error) {
	out := make(bson.M, len(body))
	for k, v := range body {
		if k == IDField {
			id, err := decodeIDValue(v)
			if err != nil {
				return nil, err
			}
			out[k] = id.ObjectID()
			continue
		}
		out[k] = storeValue(v)
	}
	return out, nil
}

func decodeIDValue(v interface{}) (DocumentID, error) {
	text, ok := v.(string)
	if !ok {
		return DocumentID{}, apperrors.NewInvalidIdentifierError(fmt.Sprint(v))
	}
	return DecodeID(text)
}

func storeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	case map[string]interface{}:
		nested := make(bson.M, len(val))
		for k, nv := range val {
			nested[k] = storeValue(nv)
		}
		return nested
	case []interface{}:
		arr := make(bson.A, len(val))
		for i, av := range val {
			arr[i] = storeValue(av)
		}
		return arr
	default:
		return val
	}
}

// DecodeBody parses a JSON request body that must be a single object
func DecodeBody(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewInvalidDocumentError("request body must be a JSON object")
	}

	var body map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, apperrors.NewInvalidDocumentError("request body must be a JSON object").
			WithDetail("reason", err.Error())
	}
	// More() misses a stray closing bracket, so require a clean EOF
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, apperrors.NewInvalidDocumentError("request body must contain a single JSON object")
	}
	if body == nil {
		return nil, apperrors.NewInvalidDocumentError("request body must be a JSON object")
	}
	return body, nil
}
