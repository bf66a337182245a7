package report

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yourusername/replay-labeller/internal/models"
)

func sortEntriesByLikelihood[T any](entries []T, key func(T) float64) {
	sort.SliceStable(entries, func(i, j int) bool {
		return key(entries[i]) > key(entries[j])
	})
}

func renderRankingTable(w *Writer, m *models.Match, setups []models.Setup, ranked []models.RankedLabel) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Probability", "Setup", "Games", "From", "To", "LogLik"})

	for _, r := range ranked {
		if r.Label == nil {
			tw.AppendRow(table.Row{
				fmt.Sprintf("%.2f%%", r.Probability*100),
				"-", "no label", "-", "-", "-",
			})
			continue
		}
		setup := setups[r.Label.SetupIndex]
		first := setup.Games[r.Label.GameIndex]
		last := setup.Games[r.Label.GameIndex+m.GameCount()-1]
		tw.AppendRow(table.Row{
			fmt.Sprintf("%.2f%%", r.Probability*100),
			setup.ID,
			fmt.Sprintf("%d-%d", r.Label.GameIndex, r.Label.GameIndex+m.GameCount()-1),
			w.displayTime(first.StartedAt),
			w.displayTime(last.EndedAt),
			fmt.Sprintf("%.3f", r.Label.LogLikelihood),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
