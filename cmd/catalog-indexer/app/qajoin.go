package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kart-io/catalog-chat/internal/pkg/catalog"
)

type qaJoinOptions struct {
	questions string
	answers   string
	output    string
}

func newQAJoinCommand() *cobra.Command {
	o := &qaJoinOptions{output: "qa.csv"}

	cmd := &cobra.Command{
		Use:   "qa-join [single-qa.csv...]",
		Short: "Merge Q&A exports into one question,answer CSV",
		Long: `Joins a questions file (QuestionID,QuestionText) with an answers file
(QuestionID,AnswerText) and appends the pairs, followed by the rows of every
single-file Q&A CSV given as an argument, to the output CSV.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.questions == "" && o.answers == "" && len(args) == 0 {
				return fmt.Errorf("nothing to join: pass --questions/--answers or Q&A files")
			}
			added, err := catalog.AppendQAFiles(o.output, o.questions, o.answers, args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appended %d pairs to %s\n", added, o.output)
			return nil
		},
	}

	cmd.Flags().StringVar(&o.questions, "questions", o.questions, "Questions CSV with QuestionID and QuestionText columns.")
	cmd.Flags().StringVar(&o.answers, "answers", o.answers, "Answers CSV with QuestionID and AnswerText columns.")
	cmd.Flags().StringVarP(&o.output, "output", "o", o.output, "Output question,answer CSV. Existing rows are kept.")
	return cmd
}
