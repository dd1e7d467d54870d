package common

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"applypilot/internal/errors"
)

// Allow-listed document extensions. Rejection happens locally, before any
// network call is made.
var (
	resumeExtensions  = []string{".pdf", ".docx"}
	jobFileExtensions = []string{".pdf", ".docx", ".txt", ".doc"}
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

// ValidateResumeFileType checks the filename against the resume allow-list
func ValidateResumeFileType(filename string) error {
	return validateExtension(filename, resumeExtensions, "resume")
}

// ValidateJobFileType checks the filename against the job document allow-list
func ValidateJobFileType(filename string) error {
	return validateExtension(filename, jobFileExtensions, "job description")
}

func validateExtension(filename string, allowed []string, kind string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.NewValidationError(errors.ErrCodeUnsupportedFile,
			fmt.Sprintf("Missing file extension for %s file: %s", kind, filename), nil)
	}
	if !slices.Contains(allowed, ext) {
		return errors.NewValidationError(errors.ErrCodeUnsupportedFile,
			fmt.Sprintf("Unsupported %s file type '%s'. Supported types: %s",
				kind, ext, strings.Join(allowed, ", ")), nil)
	}
	return nil
}
