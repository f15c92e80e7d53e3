package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamesAreOrdered(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "0001_shelfboard.sql", names[0])
}

func TestSchemaMatchesRepositories(t *testing.T) {
	body, err := Files.ReadFile("0001_shelfboard.sql")
	require.NoError(t, err)
	schema := string(body)
	for _, table := range []string{"shelves", "shelf_slots", "shelf_movements", "audit_logs"} {
		require.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" ("), table)
	}
	require.Contains(t, schema, "UNIQUE (shelf_code, row_number, position)")
}
