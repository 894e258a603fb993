package postgres

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	tests := []string{"125.50", "0.01", "1000000", "-3.25"}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			want := decimal.RequireFromString(tt)

			n, err := decimalToNumeric(want)
			require.NoError(t, err)
			got, err := pgNumericToDecimal(n)
			require.NoError(t, err)

			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}

	got, err := pgNumericToDecimal(pgtype.Numeric{})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestNullableHelpers(t *testing.T) {
	assert.False(t, nullText("").Valid)
	assert.Equal(t, pgtype.Text{String: "pay-1", Valid: true}, nullText("pay-1"))

	assert.False(t, nullTime(nil).Valid)
	assert.False(t, nullTime(&time.Time{}).Valid)

	local := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	ts := nullTime(&local)
	require.True(t, ts.Valid)
	assert.Equal(t, time.UTC, ts.Time.Location())

	assert.Nil(t, timePtr(pgtype.Timestamptz{}))
	assert.True(t, timePtr(ts).Equal(local))
}

func TestParseMigrations(t *testing.T) {
	t.Run("embedded migrations are ordered and non-empty", func(t *testing.T) {
		migrations, err := ParseMigrations()
		require.NoError(t, err)
		require.NotEmpty(t, migrations)
		assert.Equal(t, 1, migrations[0].Version)
		assert.Equal(t, "outbound_payments", migrations[0].Name)
		assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS outbound_payments")
	})

	t.Run("sorts by version and ignores other files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/0010_add_index.sql": {Data: []byte("CREATE INDEX x ON t (a);")},
			"m/0002_create.sql":    {Data: []byte("CREATE TABLE t (a INT);")},
			"m/README.md":          {Data: []byte("notes")},
		}

		migrations, err := parseMigrations(fsys, "m")

		require.NoError(t, err)
		require.Len(t, migrations, 2)
		assert.Equal(t, 2, migrations[0].Version)
		assert.Equal(t, "add_index", migrations[1].Name)
	})

	t.Run("duplicate version is an error", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/0001_a.sql": {Data: []byte("SELECT 1;")},
			"m/001_b.sql":  {Data: []byte("SELECT 2;")},
		}

		_, err := parseMigrations(fsys, "m")

		assert.ErrorContains(t, err, "share version 1")
	})
}
