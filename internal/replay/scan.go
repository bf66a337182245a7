package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/replay-labeller/internal/metrics"
	"github.com/yourusername/replay-labeller/internal/models"
)

// setupDirPattern extracts a setup identifier from a recording directory
// name.
var setupDirPattern = regexp.MustCompile(`Drive #\d+`)

// Scanner reads recording drive directories into Setup records.
type Scanner struct {
	loc     *time.Location
	offsets map[string]int
	logger  *logrus.Logger
}

// NewScanner creates a scanner. offsets gives per-setup clock corrections in
// seconds, subtracted from every timestamp recorded by that setup; drives
// whose clocks were never synced need them.
func NewScanner(loc *time.Location, offsets map[string]int, logger *logrus.Logger) *Scanner {
	return &Scanner{loc: loc, offsets: offsets, logger: logger}
}

// ScanSetupDir parses every replay in one drive directory into a Setup,
// ordered by start time. Files that fail to parse are logged and skipped; a
// recording station always has a few aborted or corrupt replays.
func (s *Scanner) ScanSetupDir(dir string) (*models.Setup, error) {
	setupID := setupDirPattern.FindString(filepath.Base(dir))
	if setupID == "" {
		return nil, fmt.Errorf("could not infer setup name from directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	offset := time.Duration(s.offsets[setupID]) * time.Second
	var games []models.Game
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".slp") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		game, err := ParseGame(path, s.loc)
		if err != nil {
			s.logger.WithError(err).WithField("file", path).Warn("Skipping unparseable replay")
			metrics.RecordReplayParsed("skipped")
			continue
		}
		game.StartedAt = game.StartedAt.Add(-offset)
		game.EndedAt = game.EndedAt.Add(-offset)
		games = append(games, *game)
		metrics.RecordReplayParsed("ok")
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].StartedAt.Before(games[j].StartedAt)
	})

	s.logger.WithFields(logrus.Fields{"setup": setupID, "games": len(games)}).
		Info("Scanned setup directory")
	return &models.Setup{ID: setupID, Games: games}, nil
}

// ScanAllSetups parses every drive directory under root.
func (s *Scanner) ScanAllSetups(root string) ([]models.Setup, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list replay root %s: %w", root, err)
	}

	var setups []models.Setup
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		setup, err := s.ScanSetupDir(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		setups = append(setups, *setup)
	}

	total := 0
	for _, setup := range setups {
		total += len(setup.Games)
	}
	s.logger.WithFields(logrus.Fields{"setups": len(setups), "games": total}).
		Info("Finished scanning replays")
	return setups, nil
}
