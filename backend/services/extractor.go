package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"career-roadmap/backend/models"
)

const (
	ReasonNoArray        = "no array found"
	ReasonInvalidPayload = "invalid payload"
	ReasonStageCount     = "unexpected stage count"
)

// MalformedOutputError is returned when model output cannot be turned into a roadmap.
// RawText keeps the full model answer for diagnostics.
type MalformedOutputError struct {
	Reason  string
	Detail  string
	RawText string
}

func (e *MalformedOutputError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("malformed model output: %s: %s", e.Reason, e.Detail)
	}
	return "malformed model output: " + e.Reason
}

// wireStage mirrors models.RoadmapStage with pointer fields so that a missing
// key can be told apart from an empty value.
type wireStage struct {
	Title        *string        `json:"title"`
	Tasks        []*string      `json:"tasks"`
	DailyGoal    *string        `json:"daily_goal"`
	WhyImportant *string        `json:"why_important"`
	Resources    []wireResource `json:"resources"`
}

type wireResource struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Type        *string `json:"type"`
	Description string  `json:"description"`
}

// ExtractStages pulls the roadmap array out of raw model output. Text before the
// first '[' and after the last ']' is ignored; everything in between must be a
// JSON array of complete stages. Nothing is repaired or defaulted.
func ExtractStages(raw string) ([]models.RoadmapStage, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, &MalformedOutputError{Reason: ReasonNoArray, RawText: raw}
	}

	var wire []wireStage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return nil, &MalformedOutputError{Reason: ReasonInvalidPayload, Detail: err.Error(), RawText: raw}
	}
	if len(wire) == 0 {
		return nil, &MalformedOutputError{Reason: ReasonInvalidPayload, Detail: "empty roadmap", RawText: raw}
	}

	stages := make([]models.RoadmapStage, 0, len(wire))
	for i, w := range wire {
		stage, err := w.toStage()
		if err != nil {
			return nil, &MalformedOutputError{
				Reason:  ReasonInvalidPayload,
				Detail:  fmt.Sprintf("stage %d: %v", i, err),
				RawText: raw,
			}
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func (w wireStage) toStage() (models.RoadmapStage, error) {
	switch {
	case w.Title == nil || strings.TrimSpace(*w.Title) == "":
		return models.RoadmapStage{}, fmt.Errorf("missing title")
	case len(w.Tasks) == 0:
		return models.RoadmapStage{}, fmt.Errorf("missing tasks")
	case w.DailyGoal == nil:
		return models.RoadmapStage{}, fmt.Errorf("missing daily_goal")
	case w.WhyImportant == nil:
		return models.RoadmapStage{}, fmt.Errorf("missing why_important")
	}

	tasks := make([]string, 0, len(w.Tasks))
	for j, task := range w.Tasks {
		if task == nil || strings.TrimSpace(*task) == "" {
			return models.RoadmapStage{}, fmt.Errorf("task %d: empty", j)
		}
		tasks = append(tasks, *task)
	}

	resources := make([]models.Resource, 0, len(w.Resources))
	for j, r := range w.Resources {
		if r.Title == nil || r.URL == nil {
			return models.RoadmapStage{}, fmt.Errorf("resource %d: missing title or url", j)
		}
		if r.Type == nil {
			return models.RoadmapStage{}, fmt.Errorf("resource %d: missing type", j)
		}
		typ := models.ResourceType(*r.Type)
		if !typ.Valid() {
			return models.RoadmapStage{}, fmt.Errorf("resource %d: unknown type %q", j, *r.Type)
		}
		resources = append(resources, models.Resource{
			Title:       *r.Title,
			URL:         *r.URL,
			Type:        typ,
			Description: r.Description,
		})
	}

	return models.RoadmapStage{
		Title:        *w.Title,
		Tasks:        tasks,
		DailyGoal:    *w.DailyGoal,
		WhyImportant: *w.WhyImportant,
		Resources:    resources,
	}, nil
}
