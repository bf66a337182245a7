package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/replay-labeller/internal/models"
)

// Required column headers in the roster CSV.
const (
	colTag         = "TAG"
	colMain        = "Main"
	colSecondaries = "Secondaries"
)

// ParseFile reads a roster CSV into a profile table. An empty path yields an
// empty table; labelling then falls back to the default character
// probability for every player.
func ParseFile(path string, logger *logrus.Logger) (models.ProfileTable, error) {
	if path == "" {
		logger.Info("No player roster specified; not using any player info")
		return models.ProfileTable{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	table, err := Parse(f, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	logger.WithField("tags", len(table)).Info("Parsed player roster")
	return table, nil
}

// Parse reads roster CSV data. The first row must be a header containing the
// TAG, Main, and Secondaries columns; extra columns are ignored. A tag that
// appears twice keeps its later occurrence.
func Parse(r io.Reader, logger *logrus.Logger) (models.ProfileTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colTag, colMain, colSecondaries} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("roster is missing required column %q", required)
		}
	}

	table := models.ProfileTable{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read roster row: %w", err)
		}

		tag := field(record, cols[colTag])
		if tag == "" {
			continue
		}
		fp := Fingerprint(tag)
		if _, dup := table[fp]; dup {
			logger.WithField("tag", fp).Warn("Duplicate roster tag; taking later occurrence")
		}

		table[fp] = models.PlayerProfile{
			Mains:       ExtractCharacters(field(record, cols[colMain])),
			Secondaries: ExtractCharacters(field(record, cols[colSecondaries])),
		}
	}

	return table, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
