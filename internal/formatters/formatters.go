package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"applypilot/internal/score"
	"applypilot/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "MatchReport", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchReport", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "CoverLetter", &CoverLetterTextFormatter{})
	registry.RegisterFormatter("markdown", "CoverLetter", &CoverLetterMarkdownFormatter{})
	registry.RegisterFormatter("text", "Enhancement", &EnhancementTextFormatter{})
	registry.RegisterFormatter("markdown", "Enhancement", &EnhancementMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case score.MatchReport:
		return "MatchReport"
	case types.CoverLetter:
		return "CoverLetter"
	case score.EnhancementReport:
		return "Enhancement"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// MatchTextFormatter handles text formatting for match reports
type MatchTextFormatter struct{}

func (mtf *MatchTextFormatter) Format(data any) (string, error) {
	report, ok := data.(score.MatchReport)
	if !ok {
		return "", fmt.Errorf("expected MatchReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== MATCH SCORE ===\n\n")
	output.WriteString(fmt.Sprintf("Overall:    %.1f/100 (%s)\n", report.Result.OverallScore, strings.ToUpper(string(report.Band))))
	output.WriteString(fmt.Sprintf("Skills:     %.1f/100\n", report.Result.SkillMatchScore))
	output.WriteString(fmt.Sprintf("Experience: %.1f/100\n", report.Result.ExperienceMatchScore))
	output.WriteString(fmt.Sprintf("Keywords:   %.1f/100\n\n", report.Result.KeywordMatchScore))

	if len(report.Result.MatchedSkills) > 0 {
		output.WriteString("Matched skills:\n")
		for _, skill := range report.Result.MatchedSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}

	if len(report.Result.MissingSkills) > 0 {
		output.WriteString("Missing skills:\n")
		for _, skill := range report.Result.MissingSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}

	if recs := report.Result.Recommendations; recs != nil && len(recs.Entries) > 0 {
		output.WriteString("=== RECOMMENDATIONS ===\n")
		for i, entry := range recs.Entries {
			output.WriteString(fmt.Sprintf("%d. [%s] %s: %s\n", i+1, entry.Priority, entry.Issue, entry.Action))
		}
		output.WriteString("\n")
	}

	if report.OfferEnhancement {
		output.WriteString("The overall score is below the enhancement threshold; consider running 'enhance'.\n")
	}

	return output.String(), nil
}

func (mtf *MatchTextFormatter) SupportedType() string {
	return "MatchReport"
}

// MatchMarkdownFormatter handles markdown formatting for match reports
type MatchMarkdownFormatter struct{}

func (mmf *MatchMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(score.MatchReport)
	if !ok {
		return "", fmt.Errorf("expected MatchReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Match Score\n\n")
	output.WriteString(fmt.Sprintf("**Overall:** %.1f/100 (%s)\n\n", report.Result.OverallScore, report.Band))
	output.WriteString(fmt.Sprintf("| Dimension | Score |\n|---|---|\n| Skills | %.1f |\n| Experience | %.1f |\n| Keywords | %.1f |\n\n",
		report.Result.SkillMatchScore, report.Result.ExperienceMatchScore, report.Result.KeywordMatchScore))

	if len(report.Result.MatchedSkills) > 0 {
		output.WriteString("## Matched Skills\n")
		for _, skill := range report.Result.MatchedSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}

	if len(report.Result.MissingSkills) > 0 {
		output.WriteString("## Missing Skills\n")
		for _, skill := range report.Result.MissingSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}

	if recs := report.Result.Recommendations; recs != nil && len(recs.Entries) > 0 {
		output.WriteString("## Recommendations\n\n")
		for i, entry := range recs.Entries {
			output.WriteString(fmt.Sprintf("%d. **%s** %s: %s\n", i+1, entry.Priority, entry.Issue, entry.Action))
		}
		output.WriteString("\n")
	}

	if report.OfferEnhancement {
		output.WriteString("> The overall score is below the enhancement threshold; consider running `enhance`.\n")
	}

	return output.String(), nil
}

func (mmf *MatchMarkdownFormatter) SupportedType() string {
	return "MatchReport"
}

// CoverLetterTextFormatter handles text formatting for cover letters
type CoverLetterTextFormatter struct{}

func (cltf *CoverLetterTextFormatter) Format(data any) (string, error) {
	letter, ok := data.(types.CoverLetter)
	if !ok {
		return "", fmt.Errorf("expected CoverLetter, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("=== COVER LETTER (%s) ===\n\n", letter.Tone))
	output.WriteString(letter.Text)
	output.WriteString("\n")
	return output.String(), nil
}

func (cltf *CoverLetterTextFormatter) SupportedType() string {
	return "CoverLetter"
}

// CoverLetterMarkdownFormatter handles markdown formatting for cover letters
type CoverLetterMarkdownFormatter struct{}

func (clmf *CoverLetterMarkdownFormatter) Format(data any) (string, error) {
	letter, ok := data.(types.CoverLetter)
	if !ok {
		return "", fmt.Errorf("expected CoverLetter, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Cover Letter\n\n")
	output.WriteString(fmt.Sprintf("*Tone: %s*\n\n", letter.Tone))
	output.WriteString(letter.Text)
	output.WriteString("\n")
	return output.String(), nil
}

func (clmf *CoverLetterMarkdownFormatter) SupportedType() string {
	return "CoverLetter"
}

// EnhancementTextFormatter handles text formatting for enhancement results
type EnhancementTextFormatter struct{}

func (etf *EnhancementTextFormatter) Format(data any) (string, error) {
	enhancement, ok := data.(score.EnhancementReport)
	if !ok {
		return "", fmt.Errorf("expected EnhancementReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== ENHANCED RESUME ===\n\n")
	output.WriteString(enhancement.Result.EnhancedResume)
	output.WriteString("\n\n")

	output.WriteString("=== SCORE CHANGE ===\n")
	output.WriteString(fmt.Sprintf("Original overall: %.1f/100\n", enhancement.Original.OverallScore))
	output.WriteString(fmt.Sprintf("New overall:      %.1f/100\n", enhancement.Result.NewScores.OverallScore))
	output.WriteString(fmt.Sprintf("Delta:            %+.1f\n", enhancement.Delta))

	if enhancement.Regressed {
		output.WriteString("\nWARNING: the rewrite scored lower than the original. The original resume is kept.\n")
	}

	return output.String(), nil
}

func (etf *EnhancementTextFormatter) SupportedType() string {
	return "Enhancement"
}

// EnhancementMarkdownFormatter handles markdown formatting for enhancement results
type EnhancementMarkdownFormatter struct{}

func (emf *EnhancementMarkdownFormatter) Format(data any) (string, error) {
	enhancement, ok := data.(score.EnhancementReport)
	if !ok {
		return "", fmt.Errorf("expected EnhancementReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Enhanced Resume\n\n")
	output.WriteString(enhancement.Result.EnhancedResume)
	output.WriteString("\n\n")

	output.WriteString("## Score Change\n\n")
	output.WriteString(fmt.Sprintf("| | Overall |\n|---|---|\n| Original | %.1f |\n| New | %.1f |\n| Delta | %+.1f |\n",
		enhancement.Original.OverallScore, enhancement.Result.NewScores.OverallScore, enhancement.Delta))

	if enhancement.Regressed {
		output.WriteString("\n> **Warning:** the rewrite scored lower than the original. The original resume is kept.\n")
	}

	return output.String(), nil
}

func (emf *EnhancementMarkdownFormatter) SupportedType() string {
	return "Enhancement"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
