// Package report renders labelling results as text files mirroring what a
// tournament organiser reads after a run: every surviving candidate per
// match, the single chosen labelling, and the probability rankings.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/replay-labeller/internal/candidates"
	"github.com/yourusername/replay-labeller/internal/models"
)

const timeFormat = "2006-01-02 15:04:05"

// Summary describes a single-labelling report after rendering.
type Summary struct {
	// AverageObjective is the per-match average contribution, counting
	// unlabelled matches at the no-label objective value.
	AverageObjective float64
	MissedCount      int
}

// Writer renders reports with times displayed in a configured zone.
type Writer struct {
	loc        *time.Location
	noLabelVal float64
	logger     *logrus.Logger
}

func NewWriter(loc *time.Location, noLabelVal float64, logger *logrus.Logger) *Writer {
	return &Writer{loc: loc, noLabelVal: noLabelVal, logger: logger}
}

func (w *Writer) displayTime(t time.Time) string {
	return t.In(w.loc).Format(timeFormat)
}

func (w *Writer) printMatch(out io.Writer, mi int, m *models.Match) {
	fmt.Fprintf(out, "Match %d: %s,  from %s to %s\n",
		mi, m.Description(), w.displayTime(m.StartedAt), w.displayTime(m.CompletedAt))
}

func (w *Writer) printLabel(out io.Writer, label models.Label, setups []models.Setup, nGames int, prob *float64) {
	probStr := ""
	if prob != nil {
		probStr = fmt.Sprintf(" (%.2f%%)", *prob*100)
	}
	setup := setups[label.SetupIndex]
	first := setup.Games[label.GameIndex]
	last := setup.Games[label.GameIndex+nGames-1]
	fmt.Fprintf(out, "    %.3f%s: s%d %s Games %d-%d:  %s to %s\n",
		label.LogLikelihood, probStr, label.SetupIndex, setup.ID,
		label.GameIndex, label.GameIndex+nGames-1,
		w.displayTime(first.StartedAt), w.displayTime(last.EndedAt))
}

func (w *Writer) printGame(out io.Writer, g *models.Game) {
	type side struct {
		char string
		win  string
	}
	sides := make([]side, 0, 2)
	for _, p := range g.Ports {
		if p == nil {
			continue
		}
		win := "W"
		if p.DeadAtEnd {
			win = "L"
		}
		sides = append(sides, side{char: p.Character, win: win})
	}
	if len(sides) < 2 {
		return
	}
	fmt.Fprintf(out, "        %s to %s:  [%s]  %s (%s) vs. %s (%s)\n",
		w.displayTime(g.StartedAt), w.displayTime(g.EndedAt), g.Stage,
		sides[0].char, sides[0].win, sides[1].char, sides[1].win)
}

// WriteFull lists every match followed by all of its surviving candidate
// windows and the games inside each window.
func (w *Writer) WriteFull(out io.Writer, matches []*models.Match, setups []models.Setup, cands *candidates.Result) {
	for mi, m := range matches {
		w.printMatch(out, mi, m)
		for _, label := range cands.Labels[mi] {
			w.printLabel(out, label, setups, m.GameCount(), nil)
			for k := 0; k < m.GameCount(); k++ {
				w.printGame(out, &setups[label.SetupIndex].Games[label.GameIndex+k])
			}
		}
	}
}

// WriteSingle renders the chosen labelling, labelled matches first sorted by
// descending log-likelihood, then the unlabelled ones. Returns the average
// objective contribution and the missed-match count.
func (w *Writer) WriteSingle(out io.Writer, matches []*models.Match, setups []models.Setup, assignment *models.Assignment) Summary {
	type entry struct {
		mi    int
		label *models.Label
	}
	labelled := make([]entry, 0, len(matches))
	missed := make([]int, 0)
	for mi, label := range assignment.Labels {
		if label == nil {
			missed = append(missed, mi)
		} else {
			labelled = append(labelled, entry{mi: mi, label: label})
		}
	}
	sortEntriesByLikelihood(labelled, func(e entry) float64 { return e.label.LogLikelihood })

	objVal := 0.0
	for _, e := range labelled {
		objVal += e.label.LogLikelihood
		w.printMatch(out, e.mi, matches[e.mi])
		w.printLabel(out, *e.label, setups, matches[e.mi].GameCount(), nil)
		for k := 0; k < matches[e.mi].GameCount(); k++ {
			w.printGame(out, &setups[e.label.SetupIndex].Games[e.label.GameIndex+k])
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "\nMissed %d matches:\n", len(missed))
	for _, mi := range missed {
		objVal += w.noLabelVal
		w.printMatch(out, mi, matches[mi])
	}

	avg := 0.0
	if len(matches) > 0 {
		avg = objVal / float64(len(matches))
	}
	return Summary{AverageObjective: avg, MissedCount: len(missed)}
}

// WriteProbabilities renders each match's ranked labels as a table.
func (w *Writer) WriteProbabilities(out io.Writer, matches []*models.Match, setups []models.Setup, rankings [][]models.RankedLabel) {
	for mi, m := range matches {
		w.printMatch(out, mi, m)
		if len(rankings[mi]) == 0 {
			fmt.Fprintln(out, "    (no candidates above threshold)")
			continue
		}
		fmt.Fprintln(out, renderRankingTable(w, m, setups, rankings[mi]))
	}
}

// WriteFiles renders the requested reports into dir, creating it if needed.
func (w *Writer) WriteFiles(dir, fullName, singleName, probName string,
	matches []*models.Match, setups []models.Setup,
	cands *candidates.Result, assignment *models.Assignment, rankings [][]models.RankedLabel) (Summary, error) {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	if cands != nil {
		if err := w.writeFile(filepath.Join(dir, fullName), func(f io.Writer) {
			w.WriteFull(f, matches, setups, cands)
		}); err != nil {
			return Summary{}, err
		}
	}

	var summary Summary
	if assignment != nil {
		if err := w.writeFile(filepath.Join(dir, singleName), func(f io.Writer) {
			summary = w.WriteSingle(f, matches, setups, assignment)
		}); err != nil {
			return Summary{}, err
		}
	}

	if rankings != nil {
		if err := w.writeFile(filepath.Join(dir, probName), func(f io.Writer) {
			w.WriteProbabilities(f, matches, setups, rankings)
		}); err != nil {
			return Summary{}, err
		}
	}

	w.logger.WithFields(logrus.Fields{
		"dir":           dir,
		"avg_objective": summary.AverageObjective,
		"missed":        summary.MissedCount,
	}).Info("Wrote label reports")
	return summary, nil
}

func (w *Writer) writeFile(path string, render func(io.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	render(f)
	return nil
}
