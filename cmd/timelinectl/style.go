package main

import (
	"github.com/fatih/color"

	"github.com/EI94/Urbanova-sub017/internal/model"
)

var (
	bold     = color.New(color.Bold).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
	boldRed  = color.New(color.Bold, color.FgRed).SprintFunc()
	boldCyan = color.New(color.Bold, color.FgCyan).SprintFunc()
	green    = color.New(color.FgGreen).SprintFunc()
	yellow   = color.New(color.FgYellow).SprintFunc()

	criticalRow = color.New(color.FgRed)
	plainRow    = color.New(color.Reset)
)

func disableColor() {
	color.NoColor = true
}

func severityColor(s model.Severity) func(a ...any) string {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return boldRed
	case model.SeverityMedium:
		return yellow
	default:
		return green
	}
}
