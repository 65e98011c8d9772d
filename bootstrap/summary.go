package bootstrap

import (
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"
)

// Summary collects key facts about a run and prints them as an aligned
// table once the task is done.
type Summary struct {
	serviceName string
	version     string
	rows        [][2]string
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// Add appends a row. Values are formatted with %v; durations are rounded
// to milliseconds.
func (s *Summary) Add(key string, value any) {
	if d, ok := value.(time.Duration); ok {
		value = d.Round(time.Millisecond)
	}
	s.rows = append(s.rows, [2]string{key, fmt.Sprintf("%v", value)})
}

// Len returns the number of rows added.
func (s *Summary) Len() int { return len(s.rows) }

// table renders the summary.
func (s *Summary) table() *uitable.Table {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = "  "
	table.AddRow(s.serviceName+":", s.version)
	for _, r := range s.rows {
		table.AddRow(r[0]+":", r[1])
	}
	return table
}

// Write prints the table to w followed by a newline.
func (s *Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintln(w, s.table().String())
	return err
}
