package services

import (
	"context"

	"career-roadmap/backend/metrics"
	"career-roadmap/backend/models"
	"career-roadmap/backend/repository"
	"career-roadmap/backend/utils"
)

// RegenerationThreshold is the completion rate below which a progress report
// counts as struggling. Exactly 0.5 is on track.
const RegenerationThreshold = 0.5

// ShouldRegenerate is the regeneration policy: an explicit off-track report or a
// completion rate under the threshold.
func ShouldRegenerate(entry models.ProgressLogEntry) bool {
	return entry.StageIndex == models.OffTrackStage || entry.CompletionRate < RegenerationThreshold
}

type RegenerationStatus string

const (
	RegenerationNotNeeded RegenerationStatus = "not_needed"
	RegenerationApplied   RegenerationStatus = "applied"
	RegenerationFailed    RegenerationStatus = "failed"
)

// Regeneration reports what happened to the stages during a progress update.
type Regeneration struct {
	Triggered bool               `json:"triggered"`
	Status    RegenerationStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
}

// UpdateResult is the outcome of a progress update whose append succeeded.
type UpdateResult struct {
	Record       *models.RoadmapRecord
	Regeneration Regeneration
}

// RoadmapGenerator is the part of Generator the lifecycle depends on.
type RoadmapGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]models.RoadmapStage, error)
}

// Lifecycle drives a roadmap from creation through progress-triggered regeneration.
type Lifecycle struct {
	store     repository.Store
	generator RoadmapGenerator
	log       *utils.Logger
	metrics   *metrics.Collector
	listLimit int
}

func NewLifecycle(store repository.Store, gen RoadmapGenerator, log *utils.Logger, m *metrics.Collector, listLimit int) *Lifecycle {
	if listLimit <= 0 {
		listLimit = 10
	}
	return &Lifecycle{
		store:     store,
		generator: gen,
		log:       log.With("component", "lifecycle"),
		metrics:   m,
		listLimit: listLimit,
	}
}

// Create generates a roadmap and persists it. Nothing is stored if generation fails.
func (l *Lifecycle) Create(ctx context.Context, in GenerateInput) (*models.RoadmapRecord, error) {
	profile := in.Profile()
	if profile.Interests == nil {
		profile.Interests = []string{}
	}

	stages, err := l.generator.Generate(ctx, GenerationRequest{Profile: profile, Weeks: in.Weeks})
	if err != nil {
		return nil, err
	}

	rec, err := l.store.Create(ctx, profile, stages)
	if err != nil {
		l.log.Error("roadmap store failed after generation", "error", err.Error())
		return nil, err
	}
	l.metrics.IncCreated()
	l.log.Info("roadmap created", "roadmap_id", rec.ID, "weeks", len(rec.Stages))
	return rec, nil
}

func (l *Lifecycle) Get(ctx context.Context, id string) (*models.RoadmapRecord, error) {
	return l.store.FindByID(ctx, id)
}

func (l *Lifecycle) List(ctx context.Context) ([]*models.RoadmapRecord, error) {
	return l.store.ListRecent(ctx, l.listLimit)
}

func (l *Lifecycle) Delete(ctx context.Context, id string) error {
	if err := l.store.DeleteByID(ctx, id); err != nil {
		return err
	}
	l.log.Info("roadmap deleted", "roadmap_id", id)
	return nil
}

// UpdateProgress appends entry and, when the policy says so, asks for a revised
// roadmap. A failed regeneration leaves the old stages in place and is reported
// in the result rather than as an error, since the append already happened.
func (l *Lifecycle) UpdateProgress(ctx context.Context, id string, in ProgressInput) (*UpdateResult, error) {
	entry := in.Entry()

	rec, err := l.store.AppendProgress(ctx, id, entry)
	if err != nil {
		return nil, err
	}
	l.metrics.IncProgress()
	log := l.log.With("roadmap_id", id, "stage", entry.StageIndex, "completion_rate", entry.CompletionRate)

	if !ShouldRegenerate(entry) {
		log.Debug("progress recorded")
		return &UpdateResult{Record: rec, Regeneration: Regeneration{Status: RegenerationNotNeeded}}, nil
	}

	weeks := len(rec.Stages)
	if weeks == 0 {
		weeks = rec.UserProfile.Weeks
	}
	stages, err := l.generator.Generate(ctx, GenerationRequest{
		Profile:     rec.UserProfile,
		ProgressLog: rec.ProgressLog,
		Adjust:      true,
		Weeks:       weeks,
	})
	if err != nil {
		l.metrics.ObserveRegeneration(string(RegenerationFailed))
		log.Warn("regeneration failed; keeping current stages", "error", err.Error())
		return &UpdateResult{
			Record:       rec,
			Regeneration: Regeneration{Triggered: true, Status: RegenerationFailed, Error: err.Error()},
		}, nil
	}

	replaced, err := l.store.ReplaceStages(ctx, id, stages)
	if err != nil {
		l.metrics.ObserveRegeneration(string(RegenerationFailed))
		log.Error("storing regenerated stages failed", "error", err.Error())
		if utils.IsKind(err, utils.KindNotFound) {
			// Deleted between append and replace.
			return nil, err
		}
		return &UpdateResult{
			Record:       rec,
			Regeneration: Regeneration{Triggered: true, Status: RegenerationFailed, Error: err.Error()},
		}, nil
	}

	l.metrics.ObserveRegeneration(string(RegenerationApplied))
	log.Info("roadmap regenerated", "weeks", len(replaced.Stages))
	return &UpdateResult{
		Record:       replaced,
		Regeneration: Regeneration{Triggered: true, Status: RegenerationApplied},
	}, nil
}
