package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chepyr/taskboard/internal/models"
)

const noAssignee = "NA"

// Render writes tasks as a table with the actions userID may take.
func Render(w io.Writer, tasks []models.TaskView, userID string, now time.Time) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNED\tDUE\t\tACTIONS")
	for _, t := range tasks {
		overdue := ""
		if IsOverdue(t, now) {
			overdue = "OVERDUE"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, t.Status, t.Priority, assigneeName(t),
			t.DueDate.In(now.Location()).Format("2006-01-02"), overdue, actionList(Controls(t, userID)))
	}
	return tw.Flush()
}

func assigneeName(t models.TaskView) string {
	if t.AssignedTo == nil || t.AssignedTo.Name == "" {
		return noAssignee
	}
	return t.AssignedTo.Name
}

func actionList(a Actions) string {
	var names []string
	if a.CanEdit {
		names = append(names, "edit")
	}
	if a.CanDelete {
		names = append(names, "delete")
	}
	if a.CanToggle {
		names = append(names, "toggle")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
