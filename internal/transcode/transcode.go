package transcode

// Bidirectional mapping between human-readable field names and storage-safe
// keys. "." is illegal in a stored field path (it reads as a nested-path
// separator), so it is swapped for ";" on the way in and back on the way
// out. The swap is applied recursively and in place, like the identifier
// coercion between the wire's hex string and the storage-native UUID.

import (
	"errors"
	"fmt"
	"strings"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"

	"github.com/google/uuid"
)

// ErrMissingID indicates a decode of a document lacking the identifier
// field. That is a programming error upstream, not a data condition.
var ErrMissingID = errors.New("document has no identifier field")

func EncodeKey(key string) string {
	return strings.ReplaceAll(key, ".", ";")
}

func DecodeKey(key string) string {
	return strings.ReplaceAll(key, ";", ".")
}

// EncodeFields transforms every key to its storage-safe form, recursively,
// in place.
func EncodeFields(doc map[string]interface{}) map[string]interface{} {
	return transformEveryKey(doc, EncodeKey)
}

// DecodeFields is the exact inverse of EncodeFields.
func DecodeFields(doc map[string]interface{}) map[string]interface{} {
	return transformEveryKey(doc, DecodeKey)
}

func transformEveryKey(doc map[string]interface{}, keyFunc func(string) string) map[string]interface{} {
	// first get the keys right
	for key, val := range doc {
		mapped := keyFunc(key)
		if mapped != key {
			delete(doc, key)
			doc[mapped] = val
		}
	}

	// then get any nested documents
	for key, val := range doc {
		if sub, ok := val.(map[string]interface{}); ok {
			doc[key] = transformEveryKey(sub, keyFunc)
		}
	}

	return doc
}

// EncodeDocument transforms a record to its storage form, in place: keys
// become storage-safe and a non-empty identifier is cast to a UUID.
func EncodeDocument(doc domain.Record) (domain.Record, error) {
	EncodeFields(doc)

	if raw, ok := doc[columns.ID]; ok {
		str, _ := raw.(string)
		if str != "" {
			id, err := uuid.Parse(str)
			if err != nil {
				return nil, fmt.Errorf("invalid record identifier %q: %w", str, err)
			}
			doc[columns.ID] = id
		}
	}

	return doc, nil
}

// DecodeDocument transforms a stored record to its wire form, in place:
// nils become empty strings, keys become human-readable, and the identifier
// is cast back to its string form.
func DecodeDocument(doc domain.Record) (domain.Record, error) {
	noNils(doc)
	DecodeFields(doc)

	raw, ok := doc[columns.ID]
	if !ok {
		return nil, ErrMissingID
	}
	if id, ok := raw.(uuid.UUID); ok {
		doc[columns.ID] = id.String()
	}

	return doc, nil
}

// noNils recursively replaces nil values with "".
func noNils(doc map[string]interface{}) {
	for key, val := range doc {
		if val == nil {
			doc[key] = ""
			continue
		}
		if sub, ok := val.(map[string]interface{}); ok {
			noNils(sub)
		}
	}
}
