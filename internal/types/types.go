package types

import "strings"

// PersonalInfo holds the identifying fields extracted from a resume
type PersonalInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ContactInfo holds profile links extracted from a resume
type ContactInfo struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

// ExperienceEntry is one position from the resume's work history
type ExperienceEntry struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// EducationEntry is one entry from the resume's education section
type EducationEntry struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Details     string `json:"details,omitempty"`
}

// ResumeRecord is the structured result of parsing an uploaded resume.
// RawText is always non-empty when parsing succeeded; Skills may be empty.
type ResumeRecord struct {
	RawText      string            `json:"raw_text"`
	PersonalInfo PersonalInfo      `json:"personal_info"`
	Skills       []string          `json:"skills"`
	Experience   []ExperienceEntry `json:"experience"`
	Education    []EducationEntry  `json:"education"`
	ContactInfo  ContactInfo       `json:"contact_info"`
}

// Experience level descriptors reported by the job analysis endpoint
const (
	ExperienceSenior       = "Senior"
	ExperienceMidLevel     = "Mid-Level"
	ExperienceJunior       = "Junior"
	ExperienceNotSpecified = "Not Specified"
)

// JobRecord is the structured result of analyzing a job description
type JobRecord struct {
	JobTitle            string   `json:"job_title,omitempty"`
	Company             string   `json:"company,omitempty"`
	RequiredSkills      []string `json:"required_skills"`
	NiceToHaveSkills    []string `json:"nice_to_have_skills,omitempty"`
	ExperienceLevel     string   `json:"experience_level,omitempty"`
	KeyResponsibilities []string `json:"key_responsibilities,omitempty"`
	Qualifications      []string `json:"qualifications,omitempty"`
	Description         string   `json:"description,omitempty"`
	Location            string   `json:"location,omitempty"`
	Compensation        string   `json:"compensation,omitempty"`
}

// Recommendation priorities, ordered most to least urgent
const (
	PriorityCritical = "CRITICAL"
	PriorityHigh     = "HIGH"
	PriorityMedium   = "MEDIUM"
	PriorityLow      = "LOW"
)

// Recommendation categories
const (
	CategoryKeywords     = "Keywords"
	CategoryFormat       = "Format"
	CategoryStructure    = "Structure"
	CategoryContent      = "Content"
	CategoryOptimization = "Optimization"
)

// RecommendationEntry is one actionable finding from the match analysis
type RecommendationEntry struct {
	Priority string `json:"priority"`
	Category string `json:"category"`
	Issue    string `json:"issue"`
	Action   string `json:"action"`
	Impact   string `json:"impact,omitempty"`
}

// Recommendations groups the advisory output attached to a ScoreResult
type Recommendations struct {
	Entries            []RecommendationEntry `json:"entries,omitempty"`
	SkillSuggestions   []string              `json:"skill_suggestions,omitempty"`
	ContentSuggestions []string              `json:"content_suggestions,omitempty"`
	FormattingTips     []string              `json:"formatting_tips,omitempty"`
}

// GraduateStatus describes early-career signals detected in the resume
type GraduateStatus struct {
	IsRecentGraduate     bool     `json:"is_recent_graduate"`
	GraduationYear       int      `json:"graduation_year,omitempty"`
	HasInternship        bool     `json:"has_internship"`
	HasAcademicProjects  bool     `json:"has_academic_projects"`
	HasLimitedExperience bool     `json:"has_limited_experience"`
	YearsOfExperience    float64  `json:"years_of_experience"`
	RelevantCoursework   []string `json:"relevant_coursework,omitempty"`
	AcademicAchievements []string `json:"academic_achievements,omitempty"`
}

// ScoreResult is one comparison of a resume against a job. Percentages are
// bounded to [0,100]. Derived from exactly one (ResumeRecord, JobRecord)
// pair and recomputed, never mutated, when either input changes.
type ScoreResult struct {
	OverallScore         float64          `json:"overall_score"`
	SkillMatchScore      float64          `json:"skill_match_score"`
	ExperienceMatchScore float64          `json:"experience_match_score"`
	KeywordMatchScore    float64          `json:"keyword_match_score"`
	MatchedSkills        []string         `json:"matched_skills,omitempty"`
	MissingSkills        []string         `json:"missing_skills,omitempty"`
	Recommendations      *Recommendations `json:"recommendations,omitempty"`
	GraduateStatus       *GraduateStatus  `json:"graduate_status,omitempty"`
}

// Cover letter tones accepted by the generation endpoint
const (
	ToneProfessional = "professional"
	ToneEnthusiastic = "enthusiastic"
	ToneFormal       = "formal"
)

// ValidTone reports whether tone is one of the accepted values
func ValidTone(tone string) bool {
	switch tone {
	case ToneProfessional, ToneEnthusiastic, ToneFormal:
		return true
	}
	return false
}

// CoverLetter is the generation endpoint's output for one invocation
type CoverLetter struct {
	Text string `json:"cover_letter"`
	Tone string `json:"tone,omitempty"`
}

// EnhancementResult pairs a rewritten resume with the score it achieves
// against the same job. It complements the original ScoreResult it was
// derived from; the original is never discarded.
type EnhancementResult struct {
	EnhancedResume string      `json:"enhanced_resume"`
	NewScores      ScoreResult `json:"new_similarity_scores"`
}

// SkillsSummary returns the skill list as a comma-separated string
func (r *ResumeRecord) SkillsSummary() string {
	return strings.Join(r.Skills, ", ")
}

// HasComparableContent reports whether the record carries enough signal
// for scoring: either a free-text description or structured skills.
func (j *JobRecord) HasComparableContent() bool {
	return strings.TrimSpace(j.Description) != "" || len(j.RequiredSkills) > 0
}
