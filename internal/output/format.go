// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskmgr/internal/service"
)

const (
	// NoTasks is printed for an empty task list.
	NoTasks = "no tasks found"

	// descIndent aligns descriptions under the title column.
	descIndent = "          "
)

// StatusMarker returns the checkbox shown for a status.
func StatusMarker(s service.Status) string {
	switch s {
	case service.StatusDone:
		return "[x]"
	case service.StatusInProgress:
		return "[~]"
	default:
		return "[ ]"
	}
}

// FormatTask formats a task line, followed by its description if present.
// Format: "{N:>4}  {MARKER} {TITLE}\n" (4-wide right-aligned number, two spaces, marker, title)
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", num, StatusMarker(task.Status), normalizeTitle(task.Title))
	if desc := normalizeText(task.Description); desc != "" {
		fmt.Fprintf(w, "%s%s\n", descIndent, desc)
	}
}

// FormatPage formats a page of tasks numbered from 1, then a footer line.
func FormatPage(w io.Writer, page service.Page) {
	if page.TotalElements == 0 {
		fmt.Fprintln(w, NoTasks)
		return
	}
	if len(page.Content) == 0 {
		fmt.Fprintf(w, "no tasks on page %d\n", page.PageNumber+1)
	}
	for i, task := range page.Content {
		FormatTask(w, i+1, task)
	}
	fmt.Fprintf(w, "page %d of %d (%s)\n", page.PageNumber+1, page.TotalPages, countTasks(page.TotalElements))
}

// FormatTasks formats an unpaginated task list, then a count line.
func FormatTasks(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, NoTasks)
		return
	}
	for i, task := range tasks {
		FormatTask(w, i+1, task)
	}
	fmt.Fprintln(w, countTasks(int64(len(tasks))))
}

// FormatStatuses formats the accepted status names for usage messages.
func FormatStatuses() string {
	names := make([]string, len(service.Statuses))
	for i, s := range service.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func countTasks(n int64) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

// normalizeText replaces newlines with spaces and trims surrounding space.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
