package dbengine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(t.TempDir(), nil, nil)
	require.NoError(t, err, "new database")
	return db
}

const donorsCSV = `Donor ID,Donor City,Donor State
1,Oakland,CA
2,San Francisco,CA
3,Austin,TX
4,San Francisco,CA
`

func TestImportThenQueryCount(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Import("donors", strings.NewReader(donorsCSV))
	require.NoError(t, err, "import")

	res, err := db.Query(context.Background(), `SELECT count(*) FROM donors AS donors`)
	require.NoError(t, err, "query")
	require.Equal(t, []string{"4"}, res.Rows)
}

func TestImportThenQueryWhereFilter(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Import("donors", strings.NewReader(donorsCSV))
	require.NoError(t, err, "import")

	res, err := db.Query(context.Background(), `SELECT count(*) FROM donors AS donors WHERE donors."Donor State" = "CA"`)
	require.NoError(t, err, "query")
	require.Equal(t, []string{"3"}, res.Rows, "expected 3 CA donors")
}

func TestReimportReplacesTable(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Import("donors", strings.NewReader(donorsCSV))
	require.NoError(t, err, "import")
	_, err = db.Import("donors", strings.NewReader("Donor ID,Donor City,Donor State\n1,Reno,NV\n"))
	require.NoError(t, err, "reimport")

	res, err := db.Query(context.Background(), `SELECT count(*) FROM donors AS donors`)
	require.NoError(t, err, "query")
	assert.Equal(t, "1", res.Rows[0], "expected the reimported table to replace the old one")
}

func TestQueryAgainstUnknownTable(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Query(context.Background(), `SELECT count(*) FROM nope AS nope`)
	assert.Error(t, err, "expected an error querying a nonexistent table")
}

func TestReopenDatabaseReloadsTableManifests(t *testing.T) {
	dir := t.TempDir()
	db, err := NewDatabase(dir, nil, nil)
	require.NoError(t, err, "new database")
	_, err = db.Import("donors", strings.NewReader(donorsCSV))
	require.NoError(t, err, "import")

	reopened, err := NewDatabase(dir, nil, nil)
	require.NoError(t, err, "reopen database")
	_, err = reopened.Table("donors")
	require.NoError(t, err, "expected the reopened database to know about the 'donors' table")

	res, err := reopened.Query(context.Background(), `SELECT count(*) FROM donors AS donors`)
	require.NoError(t, err, "query after reopen")
	assert.Equal(t, "4", res.Rows[0], "expected count 4 after reopen")
}
