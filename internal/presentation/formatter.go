package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// ValidateFormat rejects unknown output formats.
func ValidateFormat(format string) error {
	switch format {
	case FormatJSON, FormatTable:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatJSON, FormatTable)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format string
}

// NewFormatter creates a formatter writing format to writer. An empty
// format means JSON.
func NewFormatter(writer io.Writer, format string) *Formatter {
	if format == "" {
		format = FormatJSON
	}
	return &Formatter{writer: writer, format: format}
}

// FormatTypes writes element types.
func (f *Formatter) FormatTypes(types []TypeDTO) error {
	if f.format != FormatTable {
		return f.FormatValue(types)
	}
	rows := make([][]string, len(types))
	for i, t := range types {
		rows[i] = []string{t.Name, t.Title, t.Capabilities, t.Topic, strings.Join(t.Infos, ","), strconv.Itoa(t.Builtins)}
	}
	return f.table([]string{"NAME", "TITLE", "CAPABILITIES", "TOPIC", "INFOS", "BUILTINS"}, rows)
}

// FormatPages writes a flattened listing.
func (f *Formatter) FormatPages(pages []PageDTO) error {
	if f.format != FormatTable {
		return f.FormatValue(pages)
	}
	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{p.Group, p.Name, p.Title, p.Owner, yesNo(p.Public), yesNo(p.Hidden)}
	}
	return f.table([]string{"GROUP", "NAME", "TITLE", "OWNER", "PUBLIC", "HIDDEN"}, rows)
}

// FormatSelectors writes selectors.
func (f *Formatter) FormatSelectors(sels []SelectorDTO) error {
	if f.format != FormatTable {
		return f.FormatValue(sels)
	}
	rows := make([][]string, len(sels))
	for i, s := range sels {
		rows[i] = []string{s.Topic, s.Name, s.Title, s.Info, strings.Join(s.Variables, ",")}
	}
	return f.table([]string{"TOPIC", "NAME", "TITLE", "INFO", "VARIABLES"}, rows)
}

// FormatValue writes any value as indented JSON regardless of format.
func (f *Formatter) FormatValue(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *Formatter) table(headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(f.writer, t.Render())
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
