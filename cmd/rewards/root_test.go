package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPointsCommand(t *testing.T) {
	out, err := execute(t, "points", "120", "75.5", "100.01", "45")
	require.NoError(t, err)
	assert.Equal(t, "120.00\t90\n75.50\t25\n100.01\t50\n45.00\t0\n", out)
}

func TestPointsCommand_CustomSchedule(t *testing.T) {
	t.Setenv("REWARDS_TIER_TWO_MULTIPLIER", "3")
	out, err := execute(t, "points", "120")
	require.NoError(t, err)
	assert.Equal(t, "120.00\t110\n", out)
}

func TestPointsCommand_InvalidAmount(t *testing.T) {
	_, err := execute(t, "points", "abc")
	assert.Error(t, err)
}

func TestMigrateCommand_MemoryBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	_, err := execute(t, "migrate")
	assert.ErrorContains(t, err, "no schema")
}

func TestMigrateCommand_SQLite(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "rewards.db"))

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "sqlite schema is up to date\n", out)
}

func TestSeedCommand_SQLite(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "rewards.db"))

	out, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Equal(t, "sample data seeded\n", out)

	out, err = execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")
}

func TestExportCommand_CSV(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")

	out, err := execute(t, "export", "--seed", "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Customer ID", records[0][0])
	assert.Equal(t, "Total Points", records[0][len(records[0])-1])
	assert.Equal(t, "Ada Lovelace", records[1][1])
}

func TestExportCommand_XLSXFile(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	path := filepath.Join(t.TempDir(), "rewards.xlsx")

	_, err := execute(t, "export", "--seed", "--format", "xlsx", "--out", path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Rewards")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestExportCommand_BadFormat(t *testing.T) {
	_, err := execute(t, "export", "--format", "pdf")
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	for _, k := range []string{"DATA_BACKEND", "REDIS_ADDR", "AMQP_URL", "REWARDS_CONFIG_FILE", "GOOGLE_SPREADSHEET_ID"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}
