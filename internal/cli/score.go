package cli

import (
	"context"
	"fmt"

	"applypilot/internal/common"
	"applypilot/internal/gateway"
	"applypilot/internal/score"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file] [job-file]",
	Short: "Score a resume against a job description",
	Long: `Score a resume against a job description using the analysis gateway.

The resume and job documents are parsed remotely, compared, and the result is
reported as an overall match percentage with per-dimension breakdowns
(skills, experience, keywords), matched and missing skills, and actionable
recommendations. Scores of 80 and above are green, 60-79 yellow, below 60 red.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := validateApplicationArgs(args); err != nil {
			return err
		}
		// Apply default format if not specified
		if scoreConfig.OutputFormat == "" {
			scoreConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(scoreConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runScore,
}

var scoreConfig common.CommandConfig

func init() {
	scoreCmd.Flags().StringVarP(&scoreConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = scoreCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	client := gateway.NewClient(cfg, logger)

	logDetails := func(input applicationInput, cfg common.CommandConfig) {
		logger.Info("Starting match scoring",
			"resume_file", input.resumeName,
			"job_file", input.jobName,
			"output_format", cfg.OutputFormat)
	}

	scoreOperation := func(ctx context.Context, input applicationInput) (score.MatchReport, error) {
		return runScorePipeline(ctx, client, input)
	}

	err = common.RunGatewayCommand(
		cmd.Context(),
		logger,
		scoreConfig,
		args,
		createApplicationInput(args),
		scoreOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	logger.Info("Match scoring completed successfully")
	return nil
}

// runScorePipeline performs the intake and similarity calls for one
// resume/job pair.
func runScorePipeline(ctx context.Context, client *gateway.Client, input applicationInput) (score.MatchReport, error) {
	resume, err := client.ParseResume(ctx, input.resumeName, input.resumeContent)
	if err != nil {
		return score.MatchReport{}, err
	}

	job, err := client.AnalyzeJobFile(ctx, input.jobName, input.jobContent)
	if err != nil {
		return score.MatchReport{}, err
	}

	jobText, err := score.JobComparisonText(job)
	if err != nil {
		return score.MatchReport{}, err
	}

	result, err := client.CalculateSimilarity(ctx, resume.RawText, jobText)
	if err != nil {
		return score.MatchReport{}, err
	}
	if err := score.Validate(result); err != nil {
		return score.MatchReport{}, err
	}

	return score.NewMatchReport(result), nil
}
