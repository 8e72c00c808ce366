package transcode

import (
	"testing"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEncodeKey_DecodeKey_RoundTrip(t *testing.T) {
	names := []string{
		"Labor Cat.",
		"Source of Funds (U.S. Only)",
		"Institution",
		"a.b.c",
	}
	for _, name := range names {
		assert.Equal(t, name, DecodeKey(EncodeKey(name)))
	}
	assert.Equal(t, "Labor Cat;", EncodeKey("Labor Cat."))
}

func TestEncodeFields_Nested(t *testing.T) {
	doc := map[string]interface{}{
		"Labor Cat.": "KE",
		"meta": map[string]interface{}{
			"sub.key": 1,
		},
	}

	EncodeFields(doc)

	assert.Equal(t, "KE", doc["Labor Cat;"])
	sub := doc["meta"].(map[string]interface{})
	assert.Equal(t, 1, sub["sub;key"])

	DecodeFields(doc)
	assert.Equal(t, "KE", doc["Labor Cat."])
	sub = doc["meta"].(map[string]interface{})
	assert.Equal(t, 1, sub["sub.key"])
}

func TestEncodeDocument_ParsesIdentifier(t *testing.T) {
	id := uuid.New()
	doc := domain.Record{
		columns.ID:       id.String(),
		columns.WBSL2:    "Program Management",
		columns.LaborCat: "KE",
	}

	encoded, err := EncodeDocument(doc)

	assert.NoError(t, err)
	assert.Equal(t, id, encoded[columns.ID])
	assert.Equal(t, "KE", encoded["Labor Cat;"])
}

func TestEncodeDocument_BlankIdentifierKept(t *testing.T) {
	doc := domain.Record{columns.ID: ""}

	encoded, err := EncodeDocument(doc)

	assert.NoError(t, err)
	assert.Equal(t, "", encoded[columns.ID])
}

func TestEncodeDocument_BadIdentifier(t *testing.T) {
	doc := domain.Record{columns.ID: "not-a-uuid"}

	_, err := EncodeDocument(doc)

	assert.Error(t, err)
}

func TestDecodeDocument_RoundTrip(t *testing.T) {
	id := uuid.New()
	doc := domain.Record{
		columns.ID:  id.String(),
		"Labor Cat.": "KE",
		"Name":       nil,
	}

	encoded, err := EncodeDocument(doc)
	assert.NoError(t, err)

	decoded, err := DecodeDocument(encoded)
	assert.NoError(t, err)

	assert.Equal(t, id.String(), decoded[columns.ID])
	assert.Equal(t, "KE", decoded["Labor Cat."])
	// nils become empty strings on the way out
	assert.Equal(t, "", decoded["Name"])
}

func TestDecodeDocument_MissingIdentifier(t *testing.T) {
	_, err := DecodeDocument(domain.Record{"Name": "x"})

	assert.ErrorIs(t, err, ErrMissingID)
}
