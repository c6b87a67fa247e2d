// Package report renders and exports the read-only accumulator snapshots of an
// allocator: group 1/2 x absolute/relative tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/group-balancer/alloc"
)

// Kind selects absolute counts or relative shares.
type Kind string

const (
	Absolute Kind = "as"
	Relative Kind = "rs"
)

// Source exposes group snapshots. *alloc.Allocator satisfies it.
type Source interface {
	Group(id alloc.GroupID) alloc.GroupSnapshot
}

// Row returns the table values of one group in feature order. Relative shares
// are rounded to two decimals.
func Row(snap alloc.GroupSnapshot, kind Kind) []string {
	row := make([]string, len(snap.Features))
	for i, name := range snap.Features {
		if kind == Relative {
			row[i] = strconv.FormatFloat(snap.Shares[name], 'f', 2, 64)
		} else {
			row[i] = strconv.Itoa(snap.Counts[name])
		}
	}
	return row
}

// WriteCSV writes a header of feature names followed by one value row.
func WriteCSV(w io.Writer, snap alloc.GroupSnapshot, kind Kind) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(snap.Features); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := writer.Write(Row(snap, kind)); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// FileName returns the export file name of one table, e.g.
// "g1_as_group_summaries_16102026-0930.csv".
func FileName(id alloc.GroupID, kind Kind, now time.Time) string {
	return fmt.Sprintf("g%d_%s_group_summaries_%s.csv", int(id), kind, now.Format("02012006-1504"))
}

// ExportAll writes the four accumulator tables into dir and returns the
// written paths.
func ExportAll(dir string, src Source, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	var paths []string
	for _, id := range alloc.Groups {
		snap := src.Group(id)
		for _, kind := range []Kind{Absolute, Relative} {
			path := filepath.Join(dir, FileName(id, kind, now))
			if err := writeFile(path, snap, kind); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func writeFile(path string, snap alloc.GroupSnapshot, kind Kind) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := WriteCSV(f, snap, kind); err != nil {
		return fmt.Errorf("exporting %s: %w", path, err)
	}
	logrus.Debugf("wrote %s", path)
	return nil
}
