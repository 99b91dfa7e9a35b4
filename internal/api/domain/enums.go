package domain

import "slices"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// FactCategory groups facts remembered about a user
type FactCategory string

const (
	FactPersonal     FactCategory = "personal"
	FactProfessional FactCategory = "professional"
	FactPreferences  FactCategory = "preferences"
	FactLearning     FactCategory = "learning"
	FactGoals        FactCategory = "goals"
	FactInterests    FactCategory = "interests"
	FactTechnical    FactCategory = "technical"
	FactBehavioral   FactCategory = "behavioral"
)

var factCategories = []FactCategory{
	FactPersonal, FactProfessional, FactPreferences, FactLearning,
	FactGoals, FactInterests, FactTechnical, FactBehavioral,
}

func (c FactCategory) Valid() bool {
	return slices.Contains(factCategories, c)
}

// FactSource tells how a fact was obtained
type FactSource string

const (
	FactSourceExtracted    FactSource = "extracted"
	FactSourceUserProvided FactSource = "user_provided"
	FactSourceImported     FactSource = "imported"
	FactSourceInferred     FactSource = "inferred"
)

var factSources = []FactSource{
	FactSourceExtracted, FactSourceUserProvided, FactSourceImported, FactSourceInferred,
}

func (s FactSource) Valid() bool {
	return slices.Contains(factSources, s)
}
