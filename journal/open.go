package journal

import (
	"fmt"
	"strings"
)

// Open builds the journal named by kind.
func Open(kind, ordersFile, equityFile, dbPath string) (Journal, error) {
	switch strings.ToLower(kind) {
	case "", "none":
		return Nop{}, nil
	case "csv":
		j, err := NewCSV(ordersFile, equityFile)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite", "sqlite3":
		j, err := NewSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", kind)
}
