package cli

import (
	"fmt"

	"applypilot/internal/common"
)

// applicationInput carries the resume and job documents a pipeline command
// sends to the analysis gateway. Filenames are kept because the gateway
// detects document formats by extension.
type applicationInput struct {
	resumeName    string
	resumeContent []byte
	jobName       string
	jobContent    []byte
}

// createApplicationInput builds the input constructor for a two-file command,
// capturing the original argument list for the filenames.
func createApplicationInput(args []string) common.CreateInputFunc[applicationInput] {
	return func(contents []string) (applicationInput, error) {
		if len(contents) != 2 {
			return applicationInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return applicationInput{
			resumeName:    args[0],
			resumeContent: []byte(contents[0]),
			jobName:       args[1],
			jobContent:    []byte(contents[1]),
		}, nil
	}
}

// validateApplicationArgs rejects unsupported document types before any file
// is read or any network call is made.
func validateApplicationArgs(args []string) error {
	if err := common.ValidateResumeFileType(args[0]); err != nil {
		return err
	}
	return common.ValidateJobFileType(args[1])
}
