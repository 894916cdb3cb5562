// Package fieldmap maps arbitrary CSV header rows onto ThruText contact fields.
//
// Three inputs must agree before a header row can be mapped: a user-edited synonym
// table (header alias -> field code), a registry of field codes to remote custom
// field ids, and the header row itself. Setup loads and reconciles the first two
// once; MapColumns then resolves any number of header rows against the result.
package fieldmap

import (
	"encoding/json/v2"
	"fmt"
	"slices"
	"strconv"
)

// FieldCode is the canonical, lowercase identifier of a contact field.
type FieldCode string

// Critical field codes. Every import must map all three.
const (
	FirstName FieldCode = "first_name"
	LastName  FieldCode = "last_name"
	Phone     FieldCode = "phone"
)

var criticalCodes = []FieldCode{FirstName, LastName, Phone}

// CriticalCodes returns the fixed set of critical field codes in canonical order.
func CriticalCodes() []FieldCode {
	return slices.Clone(criticalCodes)
}

// IsCritical reports whether c is one of the critical field codes.
func (c FieldCode) IsCritical() bool {
	return slices.Contains(criticalCodes, c)
}

// FieldID is an opaque remote custom field identifier.
//
// Numeric ids are written as JSON numbers and everything else as strings, so the
// cached document and import payloads keep the shape the remote service uses.
type FieldID string

// NoID is the sentinel id carried by critical fields, which have no remote id.
const NoID FieldID = "0"

// IsSentinel reports whether id is the critical-field sentinel.
func (id FieldID) IsSentinel() bool {
	return id == NoID
}

// MarshalJSON implements json.Marshaler.
func (id FieldID) MarshalJSON() ([]byte, error) {
	if isInteger(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON string or an integer.
func (id *FieldID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FieldID(s)
		return nil
	}
	if _, err := strconv.ParseInt(string(data), 10, 64); err != nil {
		return fmt.Errorf("field id must be a string or integer, got %s", data)
	}
	*id = FieldID(data)
	return nil
}

// isInteger reports whether s is the canonical decimal form of an int64, which
// is exactly the set of ids UnmarshalJSON accepts back from a JSON number.
func isInteger(s string) bool {
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == s
}
