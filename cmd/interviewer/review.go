package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hirewise/server/internal/client"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Print the most recent interview with its question and answer pairs",
	Run: func(cmd *cobra.Command, _ []string) {
		logger := newLogger()
		defer logger.Sync()

		interview, err := client.New(viper.GetString("server"), logger).LatestInterview(context.Background())
		if errors.Is(err, client.ErrNoInterview) {
			fmt.Println("No interview found")
			return
		}
		if err != nil {
			logger.Fatal("loading the latest interview", zap.Error(err))
		}
		printInterview(interview)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func printInterview(interview *client.Interview) {
	fmt.Printf("\nInterview %s (%s)\n", interview.ID.Hex(), interview.Status)
	if interview.CandidateName != "" {
		fmt.Printf("Candidate: %s\n", interview.CandidateName)
	}
	if interview.Role != "" {
		fmt.Printf("Role: %s\n", interview.Role)
	}

	fmt.Println("\nTranscript")
	for _, line := range interview.Grouped {
		fmt.Printf("  %s: %s\n", line.Speaker, line.Text)
	}

	if len(interview.QAPairs) > 0 {
		fmt.Println("\nQuestions and answers")
		for i, qa := range interview.QAPairs {
			fmt.Printf("  %d. Q: %s\n     A: %s\n", i+1, orDash(qa.Question), orDash(qa.Answer))
		}
	}

	if s := interview.Summary; s != nil {
		fmt.Println("\nSummary")
		fmt.Printf("  %s\n", s.Summary)
		printList("Strengths", s.KeyStrengths)
		printList("Concerns", s.Concerns)
		printList("Skills", s.SkillsMentioned)
		if s.OverallRecommendation != "" {
			fmt.Printf("  Recommendation: %s\n", s.OverallRecommendation)
		}
	}
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("  %s: %s\n", label, strings.Join(items, "; "))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
