package gateway

import "strings"

// Category hints attached to gateway rejections so callers can tailor the
// remediation shown to the user. Derived by substring inspection of the
// gateway's known rejection phrases.
const (
	HintDocumentTooShort    = "document_too_short"
	HintNotAResume          = "not_a_resume"
	HintMissingContactInfo  = "missing_contact_info"
	HintUnsupportedFileType = "unsupported_file_type"
	HintEmptyInput          = "empty_input"
	HintGeneric             = "gateway_rejection"
)

// CategoryHint classifies a gateway rejection message. The message itself is
// still surfaced verbatim; the hint only drives remediation copy.
func CategoryHint(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "too short"):
		return HintDocumentTooShort
	case strings.Contains(lower, "appear to be a resume"):
		return HintNotAResume
	case strings.Contains(lower, "contact information"), strings.Contains(lower, "contact info"):
		return HintMissingContactInfo
	case strings.Contains(lower, "unsupported file"), strings.Contains(lower, "file type"):
		return HintUnsupportedFileType
	case strings.Contains(lower, "no file"), strings.Contains(lower, "empty"):
		return HintEmptyInput
	default:
		return HintGeneric
	}
}
