package domain

import "fmt"

// PersonalInfo is the identity slice of a user profile.
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// ProfessionalInfo carries the material the generative oracle analyzes.
type ProfessionalInfo struct {
	Resume            string   `json:"resume"`
	PersonalStatement string   `json:"personal_statement"`
	YearsExperience   int      `json:"years_experience,omitempty"`
	Skills            []string `json:"skills,omitempty"`
}

// Preferences narrow the company search.
type Preferences struct {
	CompanySizes []string `json:"company_sizes"`
	Industries   []string `json:"industries"`
	Roles        []string `json:"roles,omitempty"`
	RemoteOK     bool     `json:"remote_ok,omitempty"`
}

// UserProfile is the nested profile record submitted with a search.
type UserProfile struct {
	Personal     PersonalInfo     `json:"personal"`
	Professional ProfessionalInfo `json:"professional"`
	Preferences  Preferences      `json:"preferences"`

	// Analysis is the generative oracle's profile summary, filled in by the
	// pipeline's first phase.
	Analysis string `json:"analysis,omitempty"`
}

// SearchRequest is the payload accepted by job submission.
type SearchRequest struct {
	Profile    UserProfile `json:"profile"`
	Region     string      `json:"region,omitempty"`
	MaxResults int         `json:"max_results,omitempty"`
}

// ValidationError reports the first failing submission precondition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ValidateSearchRequest checks submission preconditions in a fixed order and
// returns the first failure. hasGenerativeCredential comes from configuration;
// without it the pipeline cannot produce anything useful, so submission is
// rejected up front.
func ValidateSearchRequest(req *SearchRequest, hasGenerativeCredential bool) *ValidationError {
	if req.Profile.Professional.Resume == "" {
		return &ValidationError{Field: "profile.professional.resume", Message: "resume is required"}
	}
	if req.Profile.Professional.PersonalStatement == "" {
		return &ValidationError{Field: "profile.professional.personal_statement", Message: "personal statement is required"}
	}
	if req.Profile.Personal.Name == "" {
		return &ValidationError{Field: "profile.personal.name", Message: "name is required"}
	}
	if req.Profile.Personal.Email == "" {
		return &ValidationError{Field: "profile.personal.email", Message: "email is required"}
	}
	if len(req.Profile.Preferences.CompanySizes) == 0 {
		return &ValidationError{Field: "profile.preferences.company_sizes", Message: "at least one company size preference is required"}
	}
	if len(req.Profile.Preferences.Industries) == 0 {
		return &ValidationError{Field: "profile.preferences.industries", Message: "at least one industry preference is required"}
	}
	if !hasGenerativeCredential {
		return &ValidationError{Field: "oracles.anthropic.api_key", Message: "generative oracle credential is not configured"}
	}
	return nil
}
