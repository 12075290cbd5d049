package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/srg/oralb/pkg/config"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// record is one output object; key order is the print order.
type record = orderedmap.OrderedMap[string, any]

func newRecord() *record {
	return orderedmap.New[string, any]()
}

const (
	unsupportedText = "unsupported"
	missingCell     = "-"
)

// renderer writes records as text or JSON. Calls may come from notification
// callbacks, so writes are serialized.
type renderer struct {
	mu     sync.Mutex
	w      io.Writer
	format string

	key         *color.Color
	unsupported *color.Color
}

func newRenderer(w io.Writer, format string) *renderer {
	r := &renderer{
		w:           w,
		format:      format,
		key:         color.New(color.FgCyan),
		unsupported: color.New(color.FgYellow),
	}
	if isTerminal(w) {
		r.key.EnableColor()
		r.unsupported.EnableColor()
	} else {
		r.key.DisableColor()
		r.unsupported.DisableColor()
	}
	return r
}

func (r *renderer) isJSON() bool {
	return r.format == config.OutputJSON
}

// Record prints one record: "key: value" lines, or an indented JSON object.
// A nil value means the toothbrush does not expose that characteristic.
func (r *renderer) Record(rec *record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isJSON() {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(r.w, string(data))
		return err
	}

	for pair := rec.Oldest(); pair != nil; pair = pair.Next() {
		if _, err := fmt.Fprintf(r.w, "%s: %s\n", r.key.Sprint(pair.Key), r.text(pair.Value)); err != nil {
			return err
		}
	}
	return nil
}

// Table prints rows sharing the columns of the first row, or a JSON array.
func (r *renderer) Table(rows []*record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isJSON() {
		if rows == nil {
			rows = []*record{}
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(r.w, string(data))
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	var header []string
	for pair := rows[0].Oldest(); pair != nil; pair = pair.Next() {
		header = append(header, strings.ToUpper(pair.Key))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, 0, len(header))
		for pair := rows[0].Oldest(); pair != nil; pair = pair.Next() {
			v, _ := row.Get(pair.Key)
			if v == nil {
				cells = append(cells, missingCell)
				continue
			}
			cells = append(cells, r.plain(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// Event prints one live update: "name: value", or a compact JSON object per line.
func (r *renderer) Event(name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isJSON() {
		rec := newRecord()
		rec.Set("event", name)
		rec.Set("value", value)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(r.w, string(data))
		return err
	}
	_, err := fmt.Fprintf(r.w, "%s: %s\n", r.key.Sprint(name), r.text(value))
	return err
}

func (r *renderer) text(v any) string {
	if v == nil {
		return r.unsupported.Sprint(unsupportedText)
	}
	return r.plain(v)
}

func (r *renderer) plain(v any) string {
	switch v := v.(type) {
	case []string:
		if len(v) == 0 {
			return "none"
		}
		return strings.Join(v, ", ")
	default:
		return fmt.Sprint(v)
	}
}
