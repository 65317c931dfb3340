package universe

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE securities (
		symbol TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL,
		dividend_yield REAL NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	)`)
	require.NoError(t, err)

	return db
}

func TestSecurityRepository_SaveAndGet(t *testing.T) {
	repo := NewSecurityRepository(newTestDB(t), zerolog.Nop())

	sec := Security{
		Symbol:        "xut.to",
		Name:          "Utilities ETF",
		Price:         26.80,
		DividendYield: 0.095,
		Active:        true,
	}
	require.NoError(t, repo.Save(sec))

	got, err := repo.GetBySymbol("XUT.TO")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "XUT.TO", got.Symbol) // Symbol is normalized on save
	assert.Equal(t, 26.80, got.Price)
	assert.Equal(t, 0.095, got.DividendYield)
	assert.True(t, got.Active)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSecurityRepository_GetBySymbol_NotFound(t *testing.T) {
	repo := NewSecurityRepository(newTestDB(t), zerolog.Nop())

	got, err := repo.GetBySymbol("MISSING")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSecurityRepository_GetAllActive(t *testing.T) {
	repo := NewSecurityRepository(newTestDB(t), zerolog.Nop())

	require.NoError(t, repo.Save(Security{Symbol: "FIE.TO", Price: 6.34, DividendYield: 0.04, Active: true}))
	require.NoError(t, repo.Save(Security{Symbol: "XTR.TO", Price: 10.50, DividendYield: 0.05, Active: true}))
	require.NoError(t, repo.Save(Security{Symbol: "OLD.TO", Price: 1.00, DividendYield: 0.01, Active: false}))

	securities, err := repo.GetAllActive()
	require.NoError(t, err)
	require.Len(t, securities, 2)
	// Ordered by symbol; the inactive security is excluded
	assert.Equal(t, "FIE.TO", securities[0].Symbol)
	assert.Equal(t, "XTR.TO", securities[1].Symbol)
}

func TestSecurityRepository_UpdatePrice(t *testing.T) {
	repo := NewSecurityRepository(newTestDB(t), zerolog.Nop())
	require.NoError(t, repo.Save(Security{Symbol: "XRE.TO", Price: 15.00, DividendYield: 0.058, Active: true}))

	require.NoError(t, repo.UpdatePrice("XRE.TO", 15.75))

	got, err := repo.GetBySymbol("XRE.TO")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 15.75, got.Price)

	t.Run("rejects non-positive price", func(t *testing.T) {
		assert.Error(t, repo.UpdatePrice("XRE.TO", 0))
		assert.Error(t, repo.UpdatePrice("XRE.TO", -1))
	})

	t.Run("unknown symbol", func(t *testing.T) {
		assert.Error(t, repo.UpdatePrice("NOPE.TO", 10))
	})
}

func TestSecurityRepository_SeedDefaults(t *testing.T) {
	repo := NewSecurityRepository(newTestDB(t), zerolog.Nop())

	require.NoError(t, repo.SeedDefaults())

	securities, err := repo.GetAllActive()
	require.NoError(t, err)
	assert.Len(t, securities, len(DefaultSecurities))

	// Seeding again must not overwrite manual changes
	require.NoError(t, repo.UpdatePrice("XUT.TO", 30.00))
	require.NoError(t, repo.SeedDefaults())

	got, err := repo.GetBySymbol("XUT.TO")
	require.NoError(t, err)
	assert.Equal(t, 30.00, got.Price)
}

func TestIsSymbol(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       bool
	}{
		{name: "plain ticker", identifier: "FIE", want: true},
		{name: "ticker with exchange suffix", identifier: "XUT.TO", want: true},
		{name: "lowercase is normalized", identifier: "xtr.to", want: true},
		{name: "surrounding spaces", identifier: " XRE.TO ", want: true},
		{name: "empty string", identifier: "", want: false},
		{name: "double suffix", identifier: "XUT.TO.TO", want: false},
		{name: "suffix too long", identifier: "XUT.TORONTO", want: false},
		{name: "illegal characters", identifier: "XUT TO", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSymbol(tt.identifier))
		})
	}
}
