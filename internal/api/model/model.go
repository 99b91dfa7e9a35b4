package model

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/task"
)

type User struct {
	ID                string          `db:"id"`
	Username          string          `db:"username"`
	Email             string          `db:"email"`
	PasswordHash      string          `db:"password_hash"`
	FirstName         sql.NullString  `db:"first_name"`
	LastName          sql.NullString  `db:"last_name"`
	Bio               sql.NullString  `db:"bio"`
	Resume            sql.NullString  `db:"resume"`
	PreferredLanguage string          `db:"preferred_language"`
	Timezone          string          `db:"timezone"`
	Role              domain.UserRole `db:"role"`
	IsActive          bool            `db:"is_active"`
	LastLogin         sql.NullTime    `db:"last_login"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

type Invite struct {
	ID        string         `db:"id"`
	Code      string         `db:"code"`
	IsUsed    bool           `db:"is_used"`
	UsedBy    sql.NullString `db:"used_by"`
	UsedAt    sql.NullTime   `db:"used_at"`
	CreatedBy sql.NullString `db:"created_by"`
	CreatedAt time.Time      `db:"created_at"`
}

type Conversation struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	Title      string `db:"title"`
	IsArchived bool   `db:"is_archived"`
	// Source and SourceID identify a conversation imported from another assistant
	Source    sql.NullString `db:"source"`
	SourceID  sql.NullString `db:"source_id"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type Message struct {
	ID             string             `db:"id"`
	ConversationID string             `db:"conversation_id"`
	Role           domain.MessageRole `db:"role"`
	Content        string             `db:"content"`
	Model          sql.NullString     `db:"model"`
	TokensUsed     sql.NullInt64      `db:"tokens_used"`
	IsDeleted      bool               `db:"is_deleted"`
	CreatedAt      time.Time          `db:"created_at"`
}

type Fact struct {
	ID         string              `db:"id"`
	UserID     string              `db:"user_id"`
	Content    string              `db:"content"`
	Category   domain.FactCategory `db:"category"`
	SourceType domain.FactSource   `db:"source_type"`
	Confidence float64             `db:"confidence"`
	IsActive   bool                `db:"is_active"`
	CreatedAt  time.Time           `db:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at"`
}

type Prompt struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Vacancy is a HeadHunter vacancy, shared between users through UserVacancy links
type Vacancy struct {
	ID             string         `db:"id"`
	HHID           string         `db:"hh_id"`
	QueryRequest   sql.NullString `db:"query_request"`
	Title          string         `db:"title"`
	Description    sql.NullString `db:"description"`
	SalaryFrom     sql.NullInt64  `db:"salary_from"`
	SalaryTo       sql.NullInt64  `db:"salary_to"`
	SalaryCurrency sql.NullString `db:"salary_currency"`
	SalaryGross    sql.NullBool   `db:"salary_gross"`
	ExperienceID   sql.NullString `db:"experience_id"`
	AreaID         sql.NullString `db:"area_id"`
	AreaName       sql.NullString `db:"area_name"`
	ScheduleID     sql.NullString `db:"schedule_id"`
	EmploymentID   sql.NullString `db:"employment_id"`
	EmployerID     sql.NullString `db:"employer_id"`
	EmployerName   sql.NullString `db:"employer_name"`
	HHURL          sql.NullString `db:"hh_url"`
	ApplyURL       sql.NullString `db:"apply_url"`
	IsArchived     bool           `db:"is_archived"`
	RawData        types.JSONText `db:"raw_data"`
	PublishedAt    sql.NullTime   `db:"published_at"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// UserVacancy is a vacancy as seen by one user
type UserVacancy struct {
	Vacancy
	IsFavorite bool      `db:"is_favorite"`
	LinkActive bool      `db:"link_active"`
	LinkedAt   time.Time `db:"linked_at"`
}

type VacancyAnalysis struct {
	ID             string            `db:"id"`
	VacancyID      string            `db:"vacancy_id"`
	UserID         string            `db:"user_id"`
	Title          string            `db:"title"`
	AnalysisType   task.AnalysisType `db:"analysis_type"`
	PromptTemplate sql.NullString    `db:"prompt_template"`
	CustomPrompt   sql.NullString    `db:"custom_prompt"`
	ResultText     string            `db:"result_text"`
	Model          sql.NullString    `db:"model"`
	TokensUsed     sql.NullInt64     `db:"tokens_used"`
	CreatedAt      time.Time         `db:"created_at"`
}
