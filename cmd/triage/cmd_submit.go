package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"triage-backend/internal/triage"
)

var submitFlags struct {
	description  string
	module       string
	priority     string
	attachment   string
	resolved     string
	pollInterval time.Duration
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an issue, show the suggested solution and record feedback",
	RunE:  runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVarP(&submitFlags.description, "description", "d", "", "issue description")
	f.StringVarP(&submitFlags.module, "module", "m", "", "module hint, e.g. \"VPN & Network\"")
	f.StringVarP(&submitFlags.priority, "priority", "p", "", "priority hint: Low, Medium or High")
	f.StringVarP(&submitFlags.attachment, "attachment", "a", "", "path to a screenshot")
	f.StringVar(&submitFlags.resolved, "resolved", "", "answer the feedback question non-interactively: yes or no")
	f.DurationVar(&submitFlags.pollInterval, "poll-interval", 250*time.Millisecond, "how often to poll while analyzing")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), rootFlags.timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	resolvedAnswer, hasAnswer, err := parseAnswer(submitFlags.resolved)
	if err != nil {
		return err
	}

	description := submitFlags.description
	if description == "" && submitFlags.attachment == "" {
		fmt.Fprint(out, "Describe your issue: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read description: %w", err)
		}
		description = strings.TrimSpace(line)
	}

	client := newClient()
	view, err := client.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	id := view.SessionID
	defer func() {
		_ = client.CloseSession(context.Background(), id)
	}()

	upd := SessionUpdate{Description: &description}
	if submitFlags.module != "" {
		upd.Module = &submitFlags.module
	}
	if submitFlags.priority != "" {
		upd.Priority = &submitFlags.priority
	}
	if _, err := client.UpdateSession(ctx, id, upd); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if submitFlags.attachment != "" {
		if _, err := client.UploadAttachment(ctx, id, submitFlags.attachment); err != nil {
			return fmt.Errorf("upload attachment: %w", err)
		}
		printSuccess(out, "Attachment uploaded")
	}

	if _, err := client.Analyze(ctx, id); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " Analyzing your issue..."
	s.Start()
	view, err = client.WaitForAnalysis(ctx, id, submitFlags.pollInterval)
	s.Stop()
	if err != nil {
		return fmt.Errorf("wait for analysis: %w", err)
	}

	if view.State != triage.StateSolution {
		if view.Error != nil {
			printError(out, view.Error.Message)
			return fmt.Errorf("analysis failed: %s", view.Error.Code)
		}
		return fmt.Errorf("unexpected session state %s", view.State)
	}
	printSuccess(out, "Analysis complete")
	printResult(out, *view.Result)

	if !hasAnswer {
		resolvedAnswer, err = promptResolved(out, in)
		if err != nil {
			return err
		}
	}

	ack, view, err := client.Feedback(ctx, id, resolvedAnswer)
	if err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}
	printConfirmation(out, view.Confirmation, ack.SupportTicketNo)
	return nil
}

func parseAnswer(raw string) (answer bool, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return false, false, nil
	case "y", "yes", "true":
		return true, true, nil
	case "n", "no", "false":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("--resolved must be yes or no, got %q", raw)
	}
}

func promptResolved(out io.Writer, in *bufio.Reader) (bool, error) {
	for {
		fmt.Fprint(out, "Did this solve your issue? [y/n]: ")
		line, err := in.ReadString('\n')
		answer, ok, perr := parseAnswer(line)
		if perr == nil && ok {
			return answer, nil
		}
		if err != nil {
			return false, fmt.Errorf("read answer: %w", err)
		}
	}
}
