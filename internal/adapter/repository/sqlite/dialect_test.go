package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestDialect_IsAlreadyExists(t *testing.T) {
	d := Dialect{}
	db, err := sql.Open(d.DriverName(), filepath.Join(t.TempDir(), "dialect.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range d.SchemaStatements("Logs") {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	_, err = db.Exec(d.SchemaStatements("Logs")[0])
	require.Error(t, err)
	require.True(t, d.IsAlreadyExists(err))

	_, err = db.Exec(`SELECT * FROM missing_table`)
	require.Error(t, err)
	require.False(t, d.IsAlreadyExists(err))

	require.False(t, d.IsAlreadyExists(errors.New("table Logs already exists")), "only driver errors qualify")
}
