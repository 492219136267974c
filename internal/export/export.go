// Package export writes ranked zone scores as a table, CSV, XLSX or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/zonefit/internal/desirability"
	"github.com/sells-group/zonefit/internal/scorer"
)

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatJSON  Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", eris.Errorf("export: unsupported format %q (want table, csv, xlsx or json)", s)
	}
}

// Write encodes results in the given format.
func Write(w io.Writer, format Format, results []scorer.ZoneScore) error {
	switch format {
	case FormatTable:
		return WriteTable(w, results)
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatXLSX:
		return WriteXLSX(w, results)
	case FormatJSON:
		return WriteJSON(w, results)
	default:
		return eris.Errorf("export: unsupported format %q", format)
	}
}

var baseHeader = []string{"rank", "zipcode", "city", "state", "score", "passed"}

// WriteCSV writes one row per zone. Unavailable values are left blank.
func WriteCSV(w io.Writer, results []scorer.ZoneScore) error {
	dims := dimensionsOf(results)
	cw := csv.NewWriter(w)

	if err := cw.Write(header(dims)); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i, r := range results {
		row := []string{
			strconv.Itoa(i + 1),
			r.Zipcode,
			r.City,
			r.State,
			formatScore(r),
			strconv.FormatBool(r.Passed),
		}
		for _, d := range dims {
			row = append(row, formatComponent(r.Components[d]))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single "Scores" sheet. Unavailable values are empty
// cells.
func WriteXLSX(w io.Writer, results []scorer.ZoneScore) error {
	dims := dimensionsOf(results)
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Scores")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header(dims) {
		hr.AddCell().SetString(h)
	}

	for i, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(r.Zipcode)
		row.AddCell().SetString(r.City)
		row.AddCell().SetString(r.State)
		if r.Scored {
			row.AddCell().SetFloatWithFormat(r.Score, "0.0000")
		} else {
			row.AddCell()
		}
		row.AddCell().SetBool(r.Passed)
		for _, d := range dims {
			cell := row.AddCell()
			if v := r.Components[d]; v != nil {
				cell.SetFloatWithFormat(*v, "0.0000")
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// WriteJSON writes the results as an indented JSON array. Unavailable
// components are null.
func WriteJSON(w io.Writer, results []scorer.ZoneScore) error {
	if results == nil {
		results = []scorer.ZoneScore{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// WriteTable writes an aligned text table with scores as percentages.
// Unavailable values print as "-".
func WriteTable(w io.Writer, results []scorer.ZoneScore) error {
	p := message.NewPrinter(language.English)
	dims := dimensionsOf(results)

	if _, err := p.Fprintf(w, "%-4s %-7s %-24s %-5s %7s %-5s", "#", "Zip", "City", "State", "Score", "Pass"); err != nil {
		return eris.Wrap(err, "export: write table header")
	}
	for _, d := range dims {
		if _, err := p.Fprint(w, " "+padLeft(string(d), columnWidth(d))); err != nil {
			return eris.Wrap(err, "export: write table header")
		}
	}
	width := 57
	for _, d := range dims {
		width += columnWidth(d) + 1
	}
	if _, err := p.Fprintf(w, "\n%s\n", strings.Repeat("-", width)); err != nil {
		return eris.Wrap(err, "export: write table separator")
	}

	for i, r := range results {
		city := r.City
		if runes := []rune(city); len(runes) > 24 {
			city = string(runes[:21]) + "..."
		}
		if _, err := p.Fprintf(w, "%-4d %-7s %-24s %-5s %7s %-5v",
			i+1, r.Zipcode, city, r.State, percent(p, r.Score, r.Scored), r.Passed); err != nil {
			return eris.Wrap(err, "export: write table row")
		}
		for _, d := range dims {
			v := r.Components[d]
			cell := "-"
			if v != nil {
				cell = percent(p, *v, true)
			}
			if _, err := p.Fprint(w, " "+padLeft(cell, columnWidth(d))); err != nil {
				return eris.Wrap(err, "export: write table row")
			}
		}
		if _, err := p.Fprintln(w); err != nil {
			return eris.Wrap(err, "export: write table row")
		}
	}
	return nil
}

// WriteSummary prints totals and the score range of the scored zones.
func WriteSummary(w io.Writer, results []scorer.ZoneScore) error {
	p := message.NewPrinter(language.English)
	if len(results) == 0 {
		_, err := p.Fprintln(w, "No results.")
		return eris.Wrap(err, "export: write summary")
	}

	var scored, passed int
	var sum, lo, hi float64
	lo = 1
	for _, r := range results {
		if r.Passed {
			passed++
		}
		if !r.Scored {
			continue
		}
		scored++
		sum += r.Score
		lo = min(lo, r.Score)
		hi = max(hi, r.Score)
	}

	_, err := p.Fprintf(w, "\n--- Summary ---\nZones:         %d\nScored:        %d\nPassed:        %d\n",
		len(results), scored, passed)
	if err != nil {
		return eris.Wrap(err, "export: write summary")
	}
	if scored > 0 {
		_, err = p.Fprintf(w, "Score range:   %.1f%% to %.1f%%\nAverage score: %.1f%%\n",
			lo*100, hi*100, sum/float64(scored)*100)
	}
	return eris.Wrap(err, "export: write summary")
}

func header(dims []desirability.Dimension) []string {
	h := append([]string{}, baseHeader...)
	for _, d := range dims {
		h = append(h, string(d))
	}
	return h
}

// dimensionsOf returns every dimension present in any result, in display
// order.
func dimensionsOf(results []scorer.ZoneScore) []desirability.Dimension {
	var out []desirability.Dimension
	for _, d := range desirability.Dimensions() {
		for _, r := range results {
			if _, ok := r.Components[d]; ok {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func formatScore(r scorer.ZoneScore) string {
	if !r.Scored {
		return ""
	}
	return strconv.FormatFloat(r.Score, 'f', 4, 64)
}

func formatComponent(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func percent(p *message.Printer, v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return p.Sprintf("%.1f%%", v*100)
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func columnWidth(d desirability.Dimension) int {
	return max(len(d), 7)
}
