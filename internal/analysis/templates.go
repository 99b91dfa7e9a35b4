package analysis

import (
	"fmt"

	"github.com/cuongbtq/career-assistant/internal/task"
)

// Template is the system prompt of one analysis type
type Template struct {
	Type        task.AnalysisType
	System      string
	NeedsResume bool
}

const answerRules = `
Answer in the language of the vacancy description. Use short markdown sections.
Do not invent facts that are not present in the vacancy or the resume.`

// templates is built once; custom analyses never appear here
var templates = map[task.AnalysisType]Template{
	task.AnalysisMatching: {
		Type:        task.AnalysisMatching,
		NeedsResume: true,
		System: `You are a technical recruiter. You receive a vacancy as JSON and,
in the user_resume field, the candidate's resume. Assess how well the
candidate matches the requirements: list the matching requirements, the
missing ones and give an overall match score from 0 to 10.` + answerRules,
	},
	task.AnalysisSkillGap: {
		Type:        task.AnalysisSkillGap,
		NeedsResume: true,
		System: `You are a career mentor. You receive a vacancy as JSON and, in the
user_resume field, the candidate's resume. Find the skills and technologies
the vacancy asks for that the resume does not show, rank them by importance
and suggest a short learning plan for each.` + answerRules,
	},
	task.AnalysisPreparation: {
		Type: task.AnalysisPreparation,
		System: `You are an interview coach. You receive a vacancy as JSON. List the
topics the interview will most likely cover, typical questions for each topic
and what a strong answer should mention.` + answerRules,
	},
	task.AnalysisPrioritization: {
		Type: task.AnalysisPrioritization,
		System: `You are a career consultant. You receive a vacancy as JSON. Rate how
attractive the vacancy is (salary, employer, tasks, work format, red flags)
and finish with a priority: high, medium or low, with one sentence of reasoning.` + answerRules,
	},
}

// templateFor resolves the prompt for an analysis type. The custom type uses
// the caller's prompt and never receives the resume.
func templateFor(t task.AnalysisType, customPrompt string) (Template, error) {
	if t == task.AnalysisCustom {
		if customPrompt == "" {
			return Template{}, fmt.Errorf("%w: custom_prompt is required for the custom analysis type", task.ErrInvalidParams)
		}
		return Template{Type: t, System: customPrompt}, nil
	}

	tpl, ok := templates[t]
	if !ok {
		return Template{}, fmt.Errorf("%w: unsupported analysis type %q", task.ErrInvalidParams, t)
	}
	return tpl, nil
}
