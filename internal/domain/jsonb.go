package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONB wraps a value for storage in a PostgreSQL JSONB column. It implements
// sql.Scanner and driver.Valuer so nested aggregate state round-trips through
// database/sql without per-field marshaling at call sites.
type JSONB[T any] struct {
	V T
}

// Scan implements the sql.Scanner interface.
func (j *JSONB[T]) Scan(value any) error {
	if value == nil {
		var zero T
		j.V = zero
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for JSONB")
	}

	if len(data) == 0 {
		var zero T
		j.V = zero
		return nil
	}

	if err := json.Unmarshal(data, &j.V); err != nil {
		return fmt.Errorf("unmarshal jsonb: %w", err)
	}
	return nil
}

// Value implements the driver.Valuer interface.
func (j JSONB[T]) Value() (driver.Value, error) {
	return json.Marshal(j.V)
}
