package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"

	dateLayout = "Jan 02, 2006"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// formatFileSize renders a byte count as B, KB or MB with 1024-based units.
func formatFileSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
	}
}

// formatDate renders a Unix millisecond timestamp in local time.
func formatDate(ms int64) string {
	return time.UnixMilli(ms).Format(dateLayout)
}

func validFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// writeModels prints the catalog in the requested format.
func writeModels(w io.Writer, format string, list []models.Model) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case formatYAML:
		return writeYAML(w, list)
	}

	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No models available")
		return err
	}

	rows := make([][]string, 0, len(list))
	for _, m := range list {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			formatFileSize(m.FileSize),
			formatDate(m.AddedDate),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "SIZE", "ADDED").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// writeModel prints one model in the requested format.
func writeModel(w io.Writer, format string, m *models.Model) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case formatYAML:
		return writeYAML(w, m)
	}

	_, err := fmt.Fprintf(w,
		"ID:     %d\nName:   %s\nFile:   %s\nPath:   %s\nSize:   %s\nAdded:  %s\n",
		m.ID, m.Name, m.FileName, m.FilePath, formatFileSize(m.FileSize), formatDate(m.AddedDate))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
