package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfile is the learner data a roadmap was generated from.
type UserProfile struct {
	EducationLevel  string   `json:"education_level"`
	Skills          []string `json:"skills"`
	TargetCompanies []string `json:"companies"`
	Interests       []string `json:"interests"`
	Weeks           int      `json:"weeks,omitempty"`
}

type ResourceType string

const (
	ResourceVideo         ResourceType = "video"
	ResourceArticle       ResourceType = "article"
	ResourceCourse        ResourceType = "course"
	ResourceDocumentation ResourceType = "documentation"
	ResourcePractice      ResourceType = "practice"
	ResourceOther         ResourceType = "other"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceVideo, ResourceArticle, ResourceCourse, ResourceDocumentation, ResourcePractice, ResourceOther:
		return true
	}
	return false
}

type Resource struct {
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Type        ResourceType `json:"type"`
	Description string       `json:"description,omitempty"`
}

// RoadmapStage is one week of a roadmap. Its position in the roadmap is the week index.
type RoadmapStage struct {
	Title        string     `json:"title"`
	Tasks        []string   `json:"tasks"`
	DailyGoal    string     `json:"daily_goal"`
	WhyImportant string     `json:"why_important"`
	Resources    []Resource `json:"resources"`
}

// OffTrackStage marks a progress entry that is not tied to any stage.
const OffTrackStage = -1

type ProgressLogEntry struct {
	StageIndex     int     `json:"stage"`
	CompletionRate float64 `json:"completion_rate"`
	Date           string  `json:"date"`
	Note           string  `json:"note,omitempty"`
}

// Roadmap is the persisted roadmap row. The progress log lives in
// roadmap_progress_entries and is preloaded through Entries.
type Roadmap struct {
	ID          string                             `gorm:"primaryKey;size:36" json:"id"`
	UserProfile datatypes.JSONType[UserProfile]    `gorm:"not null" json:"-"`
	Stages      datatypes.JSONType[[]RoadmapStage] `gorm:"not null" json:"-"`
	Entries     []RoadmapProgressEntry             `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time                          `json:"created_at"`
	UpdatedAt   time.Time                          `json:"updated_at"`
}

func (Roadmap) TableName() string {
	return "roadmaps"
}

// RoadmapProgressEntry is one append-only progress log row. Rows are ordered by ID.
type RoadmapProgressEntry struct {
	ID             uint    `gorm:"primaryKey;autoIncrement"`
	RoadmapID      string  `gorm:"size:36;index;not null"`
	StageIndex     int     `gorm:"not null"`
	CompletionRate float64 `gorm:"not null"`
	Date           string  `gorm:"size:32"`
	Note           string  `gorm:"type:text"`
	CreatedAt      time.Time
}

func (RoadmapProgressEntry) TableName() string {
	return "roadmap_progress_entries"
}

func (e RoadmapProgressEntry) LogEntry() ProgressLogEntry {
	return ProgressLogEntry{
		StageIndex:     e.StageIndex,
		CompletionRate: e.CompletionRate,
		Date:           e.Date,
		Note:           e.Note,
	}
}

// RoadmapRecord is the full view of one roadmap handed to callers.
type RoadmapRecord struct {
	ID          string             `json:"id"`
	UserProfile UserProfile        `json:"user_data"`
	Stages      []RoadmapStage     `json:"roadmap"`
	ProgressLog []ProgressLogEntry `json:"progress_logs"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Record converts a loaded row (with Entries preloaded) to a RoadmapRecord.
func (r *Roadmap) Record() *RoadmapRecord {
	stages := r.Stages.Data()
	if stages == nil {
		stages = []RoadmapStage{}
	}
	for i := range stages {
		if stages[i].Resources == nil {
			stages[i].Resources = []Resource{}
		}
	}
	profile := r.UserProfile.Data()
	if profile.Interests == nil {
		profile.Interests = []string{}
	}
	log := make([]ProgressLogEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		log = append(log, e.LogEntry())
	}
	return &RoadmapRecord{
		ID:          r.ID,
		UserProfile: profile,
		Stages:      stages,
		ProgressLog: log,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
