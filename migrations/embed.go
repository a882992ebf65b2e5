package migrations

import (
	"embed"
	"fmt"
	"strings"
)

// Files holds the schema scripts so binaries and tests do not depend on the working directory.
//
//go:embed *.sql
var Files embed.FS

// Statements returns the individual statements of a migration script, e.g. "001_create_schema.up.sql".
func Statements(name string) ([]string, error) {
	content, err := Files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	var stmts []string
	for _, part := range strings.Split(string(content), ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}
