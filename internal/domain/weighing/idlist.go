package weighing

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"padihub/internal/core/id"
)

// IDList is an ordered set of receipt ids, stored as JSONB.
type IDList []id.ID

// Scan implements sql.Scanner for reading from PostgreSQL JSONB.
func (l *IDList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for IDList: %T", src)
	}

	if len(source) == 0 || bytes.Equal(source, []byte("null")) {
		*l = nil
		return nil
	}

	var result IDList
	if err := json.Unmarshal(source, &result); err != nil {
		return fmt.Errorf("failed to decode IDList: %w", err)
	}

	*l = result
	return nil
}

// Value implements driver.Valuer for writing to PostgreSQL JSONB.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}
