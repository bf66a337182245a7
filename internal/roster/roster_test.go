package roster

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestParseRoster(t *testing.T) {
	csvData := `TAG,Placing,Main,Secondaries
Alice,1,Fox,"Marth, Sheik"
C9 Bob,2,Falco,
,3,Kirby,
Alice,4,Peach,
`
	table, err := Parse(strings.NewReader(csvData), testLogger())
	require.NoError(t, err)

	// The blank-tag row is skipped; Alice appears once (later row wins).
	require.Len(t, table, 2)

	alice, ok := table["alice"]
	require.True(t, ok)
	assert.True(t, alice.Mains.Contains("PEACH"), "duplicate tag must keep the later occurrence")
	assert.False(t, alice.Mains.Contains("FOX"))

	bob, ok := table["c9bob"]
	require.True(t, ok)
	assert.True(t, bob.Mains.Contains("FALCO"))
	assert.Empty(t, bob.Secondaries)
}

func TestParseRosterMissingColumn(t *testing.T) {
	csvData := "TAG,Main\nAlice,Fox\n"
	_, err := Parse(strings.NewReader(csvData), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Secondaries")
}

func TestParseRosterShortRows(t *testing.T) {
	// Rows shorter than the header are tolerated; missing fields read empty.
	csvData := "TAG,Main,Secondaries\nAlice,Fox\n"
	table, err := Parse(strings.NewReader(csvData), testLogger())
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Empty(t, table["alice"].Secondaries)
}

func TestParseFileEmptyPath(t *testing.T) {
	table, err := ParseFile("", testLogger())
	require.NoError(t, err)
	assert.Empty(t, table)
}
