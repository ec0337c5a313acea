package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/preprocess"
)

var (
	askShowSQL      bool
	askShowExamples bool
	askNoPreprocess bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your data",
	Long: `Ask a natural-language question and get a conversational answer.

The question is cleaned up, resolved to SQL through a template match or
generative fallback, executed, and narrated from the actual results.`,
	Example: `  askdb ask "which wells are active?"
  askdb ask --show-sql "how many crew hours this week?"
  askdb ask --examples`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSQL, "show-sql", false, "include the executed SQL in the answer")
	askCmd.Flags().BoolVar(&askShowExamples, "examples", false, "show example question phrasings and exit")
	askCmd.Flags().BoolVar(&askNoPreprocess, "no-preprocess", false, "skip question preprocessing")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askShowExamples {
		printExamples(cmd)
		return nil
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("provide a question, e.g. askdb ask \"which wells are active?\"")
	}

	cfg, err := setup()
	if err != nil {
		return err
	}

	application, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Thinking..."
	s.Start()

	answer := application.pipeline.Ask(cmd.Context(), question, pipeline.Options{
		RevealSQL:      askShowSQL,
		SkipPreprocess: askNoPreprocess,
	})

	s.Stop()

	if answer.FinalQuestion != answer.Question {
		cmd.Printf("Interpreted as: %s\n\n", answer.FinalQuestion)
	}

	cmd.Println(answer.Response)

	return nil
}

func printExamples(cmd *cobra.Command) {
	cmd.Println("Example questions and how they are interpreted:")
	cmd.Println()

	for _, ex := range preprocess.Examples() {
		cmd.Printf("  %-35s ->  %s\n", ex.Before, ex.After)
	}
}
