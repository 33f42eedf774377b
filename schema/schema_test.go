package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkboard/boardserver/models"
	"github.com/inkboard/boardserver/schema"
)

func TestValidate_RecognizedType(t *testing.T) {
	for _, typ := range []string{"rectangle", "circle", "line", "arrow", "pen", "text", "note"} {
		err := schema.Validate(models.Element{"type": typ})
		assert.NoError(t, err, "type %q should validate", typ)
	}
}

func TestValidate_MissingType(t *testing.T) {
	err := schema.Validate(models.Element{"x": 1.0})
	assert.ErrorIs(t, err, schema.ErrInvalidType)
}

func TestValidate_UnrecognizedType(t *testing.T) {
	err := schema.Validate(models.Element{"type": "polygon"})
	assert.ErrorIs(t, err, schema.ErrInvalidType)
}

func TestValidateBatch_ShortCircuitsOnFirstInvalid(t *testing.T) {
	elements := []models.Element{
		{"type": "rectangle"},
		{"type": "not-a-real-type"},
		{"type": "circle"},
	}
	err := schema.ValidateBatch(elements)
	assert.ErrorIs(t, err, schema.ErrInvalidType)
}

func TestValidateBatch_AllValid(t *testing.T) {
	elements := []models.Element{
		{"type": "rectangle"},
		{"type": "circle"},
	}
	assert.NoError(t, schema.ValidateBatch(elements))
}
