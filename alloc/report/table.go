package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/inference-sim/group-balancer/alloc"
)

// newWriter returns a light-style table writer that keeps header text as
// given, so feature names match the CSV export and the encoder vocabulary.
func newWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	return t
}

// RenderGroups prints absolute and relative rows of each snapshot as one table.
func RenderGroups(w io.Writer, snaps ...alloc.GroupSnapshot) {
	if len(snaps) == 0 {
		return
	}
	t := newWriter(w)

	header := table.Row{"group", "table", "members"}
	for _, name := range snaps[0].Features {
		header = append(header, name)
	}
	t.AppendHeader(header)
	for _, snap := range snaps {
		for _, kind := range []Kind{Absolute, Relative} {
			row := table.Row{int(snap.ID), kind, snap.Members}
			for _, v := range Row(snap, kind) {
				row = append(row, v)
			}
			t.AppendRow(row)
		}
		t.AppendSeparator()
	}
	t.Render()
}

// RenderPriorities prints the priority table.
func RenderPriorities(w io.Writer, entries []alloc.PriorityEntry) {
	t := newWriter(w)
	t.AppendHeader(table.Row{"feature", "importance", "satisfied"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Feature, fmt.Sprintf("%.2f", e.Importance), e.Satisfied})
	}
	t.Render()
}

// RenderImbalance prints per-feature |share1 - share2| in feature order.
func RenderImbalance(w io.Writer, features []string, imbalance map[string]float64) {
	t := newWriter(w)
	t.AppendHeader(table.Row{"feature", "imbalance"})
	for _, name := range features {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.4f", imbalance[name])})
	}
	t.Render()
}
