package spec

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringList is a JSONB-backed list of strings (e.g. a plan's feature bullets)
type StringList []string

func (l *StringList) Scan(value interface{}) error {
	// columns added by a later migration come back NULL for existing rows
	if value == nil {
		*l = make(StringList, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("Failed to unmarshal jsonb value: %s", value)
	}
	return json.Unmarshal(bytes, &l)
}

func (l *StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (*StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "sqlite":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return ""
}
