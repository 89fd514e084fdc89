// Package models contains domain models for career-constellation.
package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
)

// JSONStringArray is an ordered string list stored as a JSON array.
// It is the only representation used for keyword and skill lists, both in
// memory and at every storage or transport boundary.
type JSONStringArray []string

// Scan implements sql.Scanner.
func (a *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan JSONStringArray: unsupported type %T", value)
	}

	parsed, err := ParseStringList(data)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. A nil array is stored as "[]".
func (a JSONStringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, fmt.Errorf("marshal JSONStringArray: %w", err)
	}
	return string(data), nil
}

// MarshalJSON always emits an array, never null.
func (a JSONStringArray) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

// ParseStringList parses a serialized string list. Only a JSON array of
// strings is accepted; empty input yields nil.
func ParseStringList(data []byte) (JSONStringArray, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse string list: %w", err)
	}
	return JSONStringArray(out), nil
}

// Counted is a label with an occurrence count.
type Counted struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Truncate cuts s to at most n runes. The cut never splits a multi-byte
// character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
