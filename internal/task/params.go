package task

import (
	"fmt"
	"slices"
	"strings"
)

// Experience is a HeadHunter experience tier (vacancy experience.id)
type Experience string

const (
	ExperienceNone         Experience = "noExperience"
	ExperienceBetween1And3 Experience = "between1And3"
	ExperienceBetween3And6 Experience = "between3And6"
	ExperienceMoreThan6    Experience = "moreThan6"
)

// AllExperiences lists every tier, used when a request does not filter
var AllExperiences = []Experience{
	ExperienceNone,
	ExperienceBetween1And3,
	ExperienceBetween3And6,
	ExperienceMoreThan6,
}

func (e Experience) Valid() bool {
	return slices.Contains(AllExperiences, e)
}

// ParseExperiences validates raw tier values. An empty input selects every tier.
func ParseExperiences(raw []string) ([]Experience, error) {
	if len(raw) == 0 {
		return slices.Clone(AllExperiences), nil
	}

	out := make([]Experience, 0, len(raw))
	for _, r := range raw {
		e := Experience(strings.TrimSpace(r))
		if !e.Valid() {
			return nil, fmt.Errorf("%w: unknown experience tier %q", ErrInvalidParams, r)
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ExperienceStrings converts tiers for SQL IN clauses
func ExperienceStrings(tiers []Experience) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = string(t)
	}
	return out
}

// AnalysisType selects the prompt used for a vacancy analysis
type AnalysisType string

const (
	AnalysisMatching       AnalysisType = "matching"
	AnalysisPrioritization AnalysisType = "prioritization"
	AnalysisPreparation    AnalysisType = "preparation"
	AnalysisSkillGap       AnalysisType = "skill_gap"
	AnalysisCustom         AnalysisType = "custom"
)

// BuiltinAnalysisTypes are the types with a stored template
var BuiltinAnalysisTypes = []AnalysisType{
	AnalysisMatching,
	AnalysisPrioritization,
	AnalysisPreparation,
	AnalysisSkillGap,
}

func (a AnalysisType) Valid() bool {
	return a == AnalysisCustom || slices.Contains(BuiltinAnalysisTypes, a)
}

// DisplayName is the human readable name used in analysis titles
func (a AnalysisType) DisplayName() string {
	switch a {
	case AnalysisMatching:
		return "Vacancy match"
	case AnalysisPrioritization:
		return "Attractiveness assessment"
	case AnalysisPreparation:
		return "Interview preparation"
	case AnalysisSkillGap:
		return "Skill gap analysis"
	case AnalysisCustom:
		return "Custom analysis"
	default:
		return string(a)
	}
}

// Description is stored alongside each analysis as the template summary
func (a AnalysisType) Description() string {
	switch a {
	case AnalysisMatching:
		return "How well the candidate fits the vacancy requirements"
	case AnalysisPrioritization:
		return "Whether the vacancy is worth applying to"
	case AnalysisPreparation:
		return "Recommendations for interview preparation"
	case AnalysisSkillGap:
		return "Missing skills and what to learn"
	case AnalysisCustom:
		return "Analysis driven by a user supplied prompt"
	default:
		return ""
	}
}

// ImportParams are the inputs of a HeadHunter import task
type ImportParams struct {
	Query string       `json:"query"`
	Tiers []Experience `json:"tiers"`
}

// AnalysisParams are the inputs of a batch analysis task
type AnalysisParams struct {
	Types        []AnalysisType `json:"types"`
	Limit        int            `json:"limit"`
	Tiers        []Experience   `json:"tiers"`
	CustomPrompt string         `json:"custom_prompt,omitempty"`
}

const (
	MinAnalysisLimit     = 1
	MaxAnalysisLimit     = 200
	DefaultAnalysisLimit = 50
)

// Params is implemented by every dispatchable parameter set
type Params interface {
	Kind() Kind
	Validate() error
	TaskID(userID string) string
}

func (p ImportParams) Kind() Kind { return KindImport }

func (p ImportParams) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidParams)
	}
	for _, t := range p.Tiers {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown experience tier %q", ErrInvalidParams, t)
		}
	}
	return nil
}

func (p ImportParams) TaskID(userID string) string {
	return ImportTaskID(userID, p.Query)
}

func (p AnalysisParams) Kind() Kind { return KindAnalysis }

func (p AnalysisParams) Validate() error {
	if len(p.Types) == 0 {
		return fmt.Errorf("%w: at least one analysis type is required", ErrInvalidParams)
	}
	for _, t := range p.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown analysis type %q", ErrInvalidParams, t)
		}
	}
	if slices.Contains(p.Types, AnalysisCustom) && strings.TrimSpace(p.CustomPrompt) == "" {
		return fmt.Errorf("%w: custom_prompt is required for the custom analysis type", ErrInvalidParams)
	}
	if p.Limit < MinAnalysisLimit || p.Limit > MaxAnalysisLimit {
		return fmt.Errorf("%w: limit must be between %d and %d", ErrInvalidParams, MinAnalysisLimit, MaxAnalysisLimit)
	}
	for _, t := range p.Tiers {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown experience tier %q", ErrInvalidParams, t)
		}
	}
	return nil
}

func (p AnalysisParams) TaskID(userID string) string {
	return AnalysisTaskID(userID, p.Types, p.Limit)
}
