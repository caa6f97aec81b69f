package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"triage-backend/internal/tickets"
)

var ErrInvalidDataset = errors.New("invalid dataset")

const (
	typeString   = "string"
	typeInteger  = "integer"
	typeFloat    = "float"
	typeBoolean  = "boolean"
	typeDatetime = "datetime"
	typeEmpty    = "empty"
)

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// columnStats accumulates the type evidence for one column.
type columnStats struct {
	name    string
	missing int
	seen    int
	kind    string
}

func (c *columnStats) observe(raw string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		c.missing++
		return
	}
	c.seen++
	c.kind = widen(c.kind, classify(v))
}

func (c *columnStats) report() ColumnReport {
	kind := c.kind
	if c.seen == 0 {
		kind = typeEmpty
	}
	return ColumnReport{Name: c.name, Type: kind, Missing: c.missing}
}

func classify(v string) string {
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return typeInteger
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return typeFloat
	}
	if _, err := strconv.ParseBool(v); err == nil {
		return typeBoolean
	}
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return typeDatetime
		}
	}
	return typeString
}

// widen merges two observed types into the narrowest type that holds both.
func widen(current, next string) string {
	switch {
	case current == "" || current == next:
		return next
	case (current == typeInteger && next == typeFloat) || (current == typeFloat && next == typeInteger):
		return typeFloat
	default:
		return typeString
	}
}

// profile reads a CSV dataset, reports its shape, and extracts knowledge-base
// rows that carry a ticket number, description and solution.
func profile(r io.Reader) (rows int, cols []ColumnReport, kb []tickets.SolvedTicket, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil, nil, fmt.Errorf("%w: file is empty", ErrInvalidDataset)
	}
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	stats := make([]*columnStats, len(header))
	index := map[string]int{}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		stats[i] = &columnStats{name: name}
		index[strings.ToLower(name)] = i
	}
	noIdx, hasNo := index["ticket_no"]
	descIdx, hasDesc := index["problem_description"]
	solIdx, hasSol := index["solution_text"]
	catIdx, hasCat := index["category"]
	importable := hasNo && hasDesc && hasSol

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, nil, fmt.Errorf("%w: row %d: %v", ErrInvalidDataset, rows+2, err)
		}
		rows++
		for i, st := range stats {
			if i < len(record) {
				st.observe(record[i])
			} else {
				st.observe("")
			}
		}
		if !importable {
			continue
		}
		t := tickets.SolvedTicket{
			TicketNo:           field(record, noIdx),
			ProblemDescription: field(record, descIdx),
			SolutionText:       field(record, solIdx),
		}
		if t.TicketNo == "" || t.ProblemDescription == "" || t.SolutionText == "" {
			continue
		}
		if hasCat {
			if m, err := tickets.ParseModule(field(record, catIdx)); err == nil {
				t.Module = m
			}
		}
		kb = append(kb, t)
	}

	cols = make([]ColumnReport, len(stats))
	for i, st := range stats {
		cols[i] = st.report()
	}
	return rows, cols, kb, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
