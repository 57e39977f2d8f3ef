package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/edgard/studybuddy/internal/database"
	"github.com/edgard/studybuddy/internal/study"
)

const questionColumnWidth = 60

type examOptions struct {
	Topics string
	Output string
	Save   bool
}

func newExamCommand(cc *commandContext) *cobra.Command {
	var opts examOptions

	cmd := &cobra.Command{
		Use:   "exam <topics...>",
		Short: "Run an interactive exam practice session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer cc.closeApp(a)

			svc, err := a.Service(ctx)
			if err != nil {
				return err
			}

			opts.Topics = strings.Join(args, " ")
			if opts.Output == "" {
				opts.Output = cc.cfg.Exam.ReportPath
			}
			return runExam(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Report file (default exam.report_path)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Save the report without asking")
	return cmd
}

// runExam asks every question of a new session on out, reading answers line
// by line from in. An empty line or "skip" skips a question and "quit" or
// "exit" ends the session early.
func runExam(ctx context.Context, svc *study.Service, in io.Reader, out io.Writer, opts examOptions) error {
	fmt.Fprintf(out, "Generating questions on %s...\n", opts.Topics)
	session, err := svc.StartSession(ctx, study.StartRequest{Topics: opts.Topics, Owner: cliOwner})
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	total := len(session.Questions)
	recorded := 0
questions:
	for i, q := range session.Questions {
		fmt.Fprintf(out, "\nQuestion %d/%d: %s\n", i+1, total, q)
		fmt.Fprint(out, "Your answer (empty to skip, 'quit' to finish): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		idx := i
		answer := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(answer) {
		case "quit", "exit":
			break questions
		case "", "skip":
			if _, err := svc.SkipQuestion(ctx, session.ID, &idx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Skipped.")
		default:
			eval, err := svc.SubmitAnswer(ctx, study.AnswerRequest{
				SessionID:     session.ID,
				QuestionIndex: &idx,
				AnswerText:    answer,
			})
			if err != nil {
				return err
			}
			printMarkdown(out, eval.Evaluation)
		}
		recorded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read answer: %w", err)
	}

	if recorded == 0 {
		fmt.Fprintln(out, "No answers recorded, nothing to evaluate.")
		return nil
	}

	fmt.Fprintln(out, "\nPreparing the final evaluation...")
	report, err := svc.FinalEvaluation(ctx, study.FinalRequest{SessionID: session.ID})
	if err != nil {
		return err
	}

	view, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, scoreTable(view.Answers))

	printMarkdown(out, report.TotalEvaluation)
	if report.WeakTopics != "" {
		fmt.Fprintf(out, "\nWeak topics: %s\n\n", report.WeakTopics)
	}
	printMarkdown(out, report.Notes)

	path := opts.Output
	if !opts.Save {
		fmt.Fprint(out, "\nSave the report to a file? (yes/no): ")
		if !scanner.Scan() || !isYes(scanner.Text()) {
			return nil
		}
		fmt.Fprintf(out, "File name [%s]: ", opts.Output)
		if scanner.Scan() {
			if name := strings.TrimSpace(scanner.Text()); name != "" {
				path = name
			}
		}
	}
	if err := saveReport(path, report); err != nil {
		return err
	}
	fmt.Fprintf(out, "Report saved to %s\n", path)
	return nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

func saveReport(path string, report *study.FinalReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := study.WriteReport(f, report.Topics, report.TotalEvaluation, report.Notes); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// scoreTable lists each answered question with its score and the average of
// the scored ones in the footer.
func scoreTable(answers []database.Answer) string {
	rows := lo.Map(answers, func(a database.Answer, _ int) []string {
		score := "-"
		switch {
		case a.Skipped:
			score = "skipped"
		case a.Score.Valid:
			score = fmt.Sprintf("%d/10", a.Score.Int64)
		}
		return []string{strconv.Itoa(a.QuestionIndex + 1), a.Question, score}
	})

	scored := lo.FilterMap(answers, func(a database.Answer, _ int) (float64, bool) {
		return float64(a.Score.Int64), a.Score.Valid && !a.Skipped
	})
	average := "-"
	if len(scored) > 0 {
		average = fmt.Sprintf("%.1f/10", lo.Sum(scored)/float64(len(scored)))
	}

	return renderTable(
		[]string{"#", "Question", "Score"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
		[]int{0, questionColumnWidth, 0},
		[]string{"", "Average", average},
	)
}
