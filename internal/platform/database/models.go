package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"cuenca-ubate/internal/domain/identification"
)

// Sources stores reference links as a JSONB array
type Sources []identification.Source

// Value implements the driver.Valuer interface for storing to database
func (s Sources) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]identification.Source(s))
}

// Scan implements the sql.Scanner interface for loading from database
func (s *Sources) Scan(value interface{}) error {
	if value == nil {
		*s = Sources{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Sources", value)
	}

	return json.Unmarshal(raw, s)
}
