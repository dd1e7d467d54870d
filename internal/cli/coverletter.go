package cli

import (
	"context"
	"fmt"

	"applypilot/internal/common"
	"applypilot/internal/errors"
	"applypilot/internal/gateway"
	"applypilot/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [resume-file] [job-file]",
	Short: "Generate a cover letter for a job application",
	Long: `Generate a cover letter tailored to a resume and a job description.

The documents are parsed by the analysis gateway and a letter is generated in
the requested tone. Supported tones: professional, enthusiastic, formal.
Generating again with a different tone replaces the previous letter.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := validateApplicationArgs(args); err != nil {
			return err
		}
		if !types.ValidTone(coverLetterTone) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("Unsupported tone '%s'. Supported tones: %s, %s, %s",
					coverLetterTone, types.ToneProfessional, types.ToneEnthusiastic, types.ToneFormal), nil)
		}
		// Apply default format if not specified
		if coverLetterConfig.OutputFormat == "" {
			coverLetterConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(coverLetterConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runCoverLetter,
}

var (
	coverLetterConfig common.CommandConfig
	coverLetterTone   string
)

func init() {
	coverLetterCmd.Flags().StringVarP(&coverLetterConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	coverLetterCmd.Flags().StringVar(&coverLetterConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	coverLetterCmd.Flags().StringVar(&coverLetterTone, "tone", types.ToneProfessional, "Letter tone: professional, enthusiastic, or formal")

	// Add completion for format and tone flags
	_ = coverLetterCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
	_ = coverLetterCmd.RegisterFlagCompletionFunc("tone", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{types.ToneProfessional, types.ToneEnthusiastic, types.ToneFormal}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
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
		logger.Info("Starting cover letter generation",
			"resume_file", input.resumeName,
			"job_file", input.jobName,
			"tone", coverLetterTone,
			"output_format", cfg.OutputFormat)
	}

	coverLetterOperation := func(ctx context.Context, input applicationInput) (types.CoverLetter, error) {
		resume, err := client.ParseResume(ctx, input.resumeName, input.resumeContent)
		if err != nil {
			return types.CoverLetter{}, err
		}

		job, err := client.AnalyzeJobFile(ctx, input.jobName, input.jobContent)
		if err != nil {
			return types.CoverLetter{}, err
		}

		return client.GenerateCoverLetter(ctx, resume, job, coverLetterTone)
	}

	err = common.RunGatewayCommand(
		cmd.Context(),
		logger,
		coverLetterConfig,
		args,
		createApplicationInput(args),
		coverLetterOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to generate cover letter: %w", err)
	}
	logger.Info("Cover letter generation completed successfully")
	return nil
}
