package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"triage-backend/internal/tickets"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	ticketColor  = color.New(color.FgYellow)
)

func printSuccess(w io.Writer, msg string) {
	successColor.Fprintf(w, "✓ %s\n", msg)
}

func printError(w io.Writer, msg string) {
	errorColor.Fprintf(w, "✗ %s\n", msg)
}

func printResult(w io.Writer, r tickets.AnalysisResult) {
	fmt.Fprintln(w)
	headerColor.Fprintln(w, "Suggested solution")
	fmt.Fprintf(w, "Module:   %s\n", r.PredictedModule)
	fmt.Fprintf(w, "Priority: %s\n", r.PredictedPriority)
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.AISuggestion)
	if len(r.SimilarIssues) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Similar resolved tickets")
		printTickets(w, r.SimilarIssues)
	}
	fmt.Fprintln(w)
}

func printTickets(w io.Writer, items []tickets.SolvedTicket) {
	for _, t := range items {
		score := "n/a"
		if t.Similarity != nil {
			score = fmt.Sprintf("%.0f%%", *t.Similarity*100)
		}
		ticketColor.Fprintf(w, "%s", t.TicketNo)
		fmt.Fprintf(w, " (%s match) %s\n", score, t.ProblemDescription)
		if t.SolutionText != "" {
			fmt.Fprintf(w, "    fix: %s\n", t.SolutionText)
		}
	}
}

func printConfirmation(w io.Writer, message, supportTicketNo string) {
	printSuccess(w, message)
	if supportTicketNo != "" {
		fmt.Fprintf(w, "Support ticket: ")
		ticketColor.Fprintln(w, supportTicketNo)
	}
}
