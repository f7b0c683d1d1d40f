package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Location string

var Locations = []Location{
	"jakarta_barat",
	"jakarta_pusat",
	"jakarta_selatan",
	"jakarta_timur",
	"jakarta_utara",
	"bekasi",
	"bogor",
	"depok",
	"tangerang",
}

func (l Location) Valid() bool {
	for _, loc := range Locations {
		if loc == l {
			return true
		}
	}
	return false
}

// StringSlice stores a list of strings as a JSON column
type StringSlice []string

// Value implements driver.Valuer interface for database storage
func (ss StringSlice) Value() (driver.Value, error) {
	if ss == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(ss))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (ss *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*ss = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, ss)
	case string:
		return json.Unmarshal([]byte(v), ss)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// MarshalJSON implements json.Marshaler interface
func (ss StringSlice) MarshalJSON() ([]byte, error) {
	if ss == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(ss))
}
