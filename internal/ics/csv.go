package ics

import (
	"encoding/csv"
	"io"

	"calkeeper/internal/model"
)

const (
	csvDateLayout = "01/02/2006"
	csvTimeLayout = "03:04 PM"
)

var csvHeader = []string{"Subject", "Start Date", "Start Time", "End Date", "End Time", "Description"}

// WriteCSV writes events in the column layout Google Calendar imports.
// Open-ended events leave the end columns empty.
func WriteCSV(w io.Writer, events []model.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, ev := range events {
		endDate, endTime := "", ""
		if ev.HasEnd() {
			endDate, endTime = ev.End.Format(csvDateLayout), ev.End.Format(csvTimeLayout)
		}
		row := []string{
			ev.Subject,
			ev.Start.Format(csvDateLayout),
			ev.Start.Format(csvTimeLayout),
			endDate,
			endTime,
			ev.Description,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
