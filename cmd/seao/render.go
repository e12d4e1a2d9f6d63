package main

import (
	"strconv"

	"github.com/pterm/pterm"

	"github.com/manthysbr/seao/pkg/client"
)

func renderStatus(st client.JobStatus) {
	switch st.Status {
	case "completed":
		pterm.Success.Printf("Job %s completed (%d%%)\n", st.ID, st.Progress)
	case "failed":
		pterm.Error.Printf("Job %s failed at %d%%: %s\n", st.ID, st.Progress, st.Error)
	default:
		pterm.Info.Printf("Job %s is %s (%d%%)\n", st.ID, pterm.LightCyan(st.Status), st.Progress)
	}
	pterm.Printf("  %s %s\n", pterm.Gray("started:"), st.StartTime)

	if len(st.Results) == 0 {
		return
	}
	data := pterm.TableData{{"ID", "Title", "Organization", "Published", "Closing", "Documents"}}
	for _, t := range st.Results {
		data = append(data, []string{
			t.ID, t.Title, t.Organization, t.PublicationDate, t.ClosingDate, strconv.Itoa(len(t.Documents)),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderJobs(list client.JobList) error {
	if list.Count == 0 {
		pterm.Info.Println("No jobs")
		return nil
	}
	data := pterm.TableData{{"ID", "Status", "Progress", "Started"}}
	for _, j := range list.Jobs {
		data = append(data, []string{j.ID, j.Status, strconv.Itoa(j.Progress) + "%", j.StartTime})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
