// Package schema enforces the element wire schema's one hard rule:
// the `type` discriminant must be one of the seven recognized tags.
// Everything else is left to the renderer (spec §4.6: "downstream
// renderers tolerate missing optional fields").
package schema

import (
	"errors"

	"github.com/inkboard/boardserver/models"
)

// ErrInvalidType is returned when an element's `type` field is missing
// or not one of the recognized discriminants.
var ErrInvalidType = errors.New("schema: missing or unrecognized element type")

// Validate checks a single element against the discriminant rule.
func Validate(el models.Element) error {
	t := el.Type()
	if t == "" {
		return ErrInvalidType
	}
	if _, ok := models.ElementTypes[t]; !ok {
		return ErrInvalidType
	}
	return nil
}

// ValidateBatch validates each element in order and short-circuits on
// the first invalid element (spec §4.6: "first invalid element
// short-circuits the batch ... no elements are committed or
// broadcast").
func ValidateBatch(elements []models.Element) error {
	for _, el := range elements {
		if err := Validate(el); err != nil {
			return err
		}
	}
	return nil
}
