package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vakinola/Studyassist-MVP/internal/client"
	"github.com/vakinola/Studyassist-MVP/internal/config"
	"github.com/vakinola/Studyassist-MVP/internal/models"
)

func newQuizCmd() *cobra.Command {
	var numQuestions int

	cmd := &cobra.Command{
		Use:   "quiz <filename>",
		Short: "Generate a quiz from a document and take it interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuiz(cmd, args[0], numQuestions)
		},
	}
	cmd.Flags().IntVarP(&numQuestions, "num", "n", 5, "number of questions (5-20)")
	return cmd
}

func runQuiz(cmd *cobra.Command, filename string, numQuestions int) error {
	cfg := config.LoadClient()
	transport := client.NewHTTPTransport(cfg.ServerURL)

	registry := client.NewRegistry()
	session := client.NewQuizSession(transport, registry)
	registry.Select(models.Document{Filename: filename})

	fmt.Fprintln(cmd.OutOrStdout(), "generating quiz...")
	questions, err := session.Generate(cmd.Context(), numQuestions)
	if err != nil {
		return err
	}

	choiceLetters := []string{"A", "B", "C", "D"}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for i, q := range questions {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d. %s\n", i+1, q.Question)
		for j, choice := range q.Choices {
			if j < len(choiceLetters) {
				fmt.Fprintf(cmd.OutOrStdout(), "   %s) %s\n", choiceLetters[j], choice)
			}
		}
		for {
			fmt.Fprint(cmd.OutOrStdout(), "answer [A-D]: ")
			if !scanner.Scan() {
				return errors.New("input closed before the quiz was finished")
			}
			if session.RecordAnswer(i, strings.TrimSpace(scanner.Text())) {
				break
			}
			fmt.Fprintln(cmd.OutOrStdout(), "please answer with A, B, C or D")
		}
	}

	result, err := session.Grade()
	if err != nil {
		var incomplete *client.IncompleteAnswersError
		if errors.As(err, &incomplete) {
			return fmt.Errorf("quiz not fully answered: %s", incomplete.Error())
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	for _, qr := range result.PerQuestion {
		mark := "✗"
		if qr.IsRight {
			mark = "✓"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d. yours: %s, correct: %s\n", mark, qr.Index+1, qr.Given, qr.Correct)
		if !qr.IsRight && qr.Expected.Explanation != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", qr.Expected.Explanation)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nscore: %d/%d (%d%%)\n", result.CorrectCount, result.Total, result.Percent)

	session.PersistResult(cmd.Context())
	return nil
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <filename> <question>",
		Short: "Ask a question about a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadClient()
			transport := client.NewHTTPTransport(cfg.ServerURL)

			registry := client.NewRegistry()
			session := client.NewQuizSession(transport, registry)
			registry.Select(models.Document{Filename: args[0]})

			answer, err := session.Ask(cmd.Context(), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Show recent quiz results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadClient()
			transport := client.NewHTTPTransport(cfg.ServerURL)

			results, err := transport.ListResults(cmd.Context())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no quiz results yet")
				return nil
			}
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d/%d (%d%%)\n",
					res.TakenAt.Format("2006-01-02 15:04"), res.Filename, res.Correct, res.Total, res.Percent)
			}
			return nil
		},
	}
}
