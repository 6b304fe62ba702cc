package migration

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is a single versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Load returns the embedded migrations sorted by version. It fails when a
// file violates the naming convention or two files share a version.
func Load() ([]Migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		version, description, err := parseFileName(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[version]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, version)
		}
		seen[version] = struct{}{}

		content, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: description,
			SQL:         string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseFileName splits "{version}_{description}.sql" into its parts.
func parseFileName(name string) (version, description string, err error) {
	base, ok := strings.CutSuffix(name, ".sql")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidFileName, name)
	}

	version, description, ok = strings.Cut(base, "_")
	if !ok || version == "" || description == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidFileName, name)
	}
	for _, r := range version {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("%w: %s", ErrInvalidFileName, name)
		}
	}

	return version, description, nil
}
