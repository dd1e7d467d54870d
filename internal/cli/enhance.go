package cli

import (
	"context"
	"fmt"

	"applypilot/internal/common"
	"applypilot/internal/gateway"
	"applypilot/internal/score"

	"github.com/spf13/cobra"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [resume-file] [job-file]",
	Short: "Rewrite a resume to better match a job description",
	Long: `Rewrite a resume to better match a job description.

The resume is scored first, then rewritten by the analysis gateway using the
scoring recommendations, and the rewrite is re-scored. The output reports the
score change; if the rewrite scored lower than the original, it is flagged as
a regression and the original resume should be kept.`,
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
		if enhanceConfig.OutputFormat == "" {
			enhanceConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(enhanceConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runEnhance,
}

var enhanceConfig common.CommandConfig

func init() {
	enhanceCmd.Flags().StringVarP(&enhanceConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	enhanceCmd.Flags().StringVar(&enhanceConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = enhanceCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runEnhance(cmd *cobra.Command, args []string) error {
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
		logger.Info("Starting resume enhancement",
			"resume_file", input.resumeName,
			"job_file", input.jobName,
			"output_format", cfg.OutputFormat)
	}

	enhanceOperation := func(ctx context.Context, input applicationInput) (score.EnhancementReport, error) {
		resume, err := client.ParseResume(ctx, input.resumeName, input.resumeContent)
		if err != nil {
			return score.EnhancementReport{}, err
		}

		job, err := client.AnalyzeJobFile(ctx, input.jobName, input.jobContent)
		if err != nil {
			return score.EnhancementReport{}, err
		}

		jobText, err := score.JobComparisonText(job)
		if err != nil {
			return score.EnhancementReport{}, err
		}

		original, err := client.CalculateSimilarity(ctx, resume.RawText, jobText)
		if err != nil {
			return score.EnhancementReport{}, err
		}
		if err := score.Validate(original); err != nil {
			return score.EnhancementReport{}, err
		}

		result, err := client.EnhanceResume(ctx, resume.RawText, jobText, original.Recommendations)
		if err != nil {
			return score.EnhancementReport{}, err
		}
		if err := score.Validate(result.NewScores); err != nil {
			return score.EnhancementReport{}, err
		}

		return score.NewEnhancementReport(result, original), nil
	}

	err = common.RunGatewayCommand(
		cmd.Context(),
		logger,
		enhanceConfig,
		args,
		createApplicationInput(args),
		enhanceOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to enhance resume: %w", err)
	}
	logger.Info("Resume enhancement completed successfully")
	return nil
}
