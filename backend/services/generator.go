package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"career-roadmap/backend/metrics"
	"career-roadmap/backend/models"
	"career-roadmap/backend/oracle"
	"career-roadmap/backend/utils"
)

const DefaultWeeks = 4

// GenerationRequest is the normalized input for one roadmap generation.
type GenerationRequest struct {
	Profile     models.UserProfile
	ProgressLog []models.ProgressLogEntry
	Adjust      bool
	Weeks       int
}

// Generator turns a profile into a validated stage sequence with exactly one
// model call. It never touches storage and never retries.
type Generator struct {
	oracle  oracle.Oracle
	log     *utils.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewGenerator(o oracle.Oracle, log *utils.Logger, m *metrics.Collector) *Generator {
	return &Generator{
		oracle:  o,
		log:     log.With("component", "generator"),
		metrics: m,
		now:     time.Now,
	}
}

func (g *Generator) Generate(ctx context.Context, req GenerationRequest) ([]models.RoadmapStage, error) {
	req = g.withDefaults(req)
	prompt := BuildPrompt(req)

	start := g.now()
	raw, err := g.oracle.Complete(ctx, prompt)
	elapsed := g.now().Sub(start)
	if err != nil {
		g.metrics.ObserveOracle(g.oracle.Name(), "error", elapsed)
		g.log.Warn("oracle call failed",
			"provider", g.oracle.Name(),
			"adjust", req.Adjust,
			"elapsed", elapsed.String(),
			"error", err.Error(),
		)
		return nil, utils.NewError(utils.KindOracleUnavailable, "roadmap generation failed: model unavailable", err)
	}
	g.metrics.ObserveOracle(g.oracle.Name(), "ok", elapsed)

	stages, err := ExtractStages(raw)
	if err == nil && len(stages) != req.Weeks {
		err = &MalformedOutputError{
			Reason:  ReasonStageCount,
			Detail:  fmt.Sprintf("want %d stages, got %d", req.Weeks, len(stages)),
			RawText: raw,
		}
	}
	if err != nil {
		var mo *MalformedOutputError
		if errors.As(err, &mo) {
			g.metrics.ObserveExtractFailure(mo.Reason)
			g.log.Error("model output rejected",
				"reason", mo.Reason,
				"detail", mo.Detail,
				"raw_len", len(mo.RawText),
				"raw_head", head(mo.RawText, 300),
			)
		}
		return nil, utils.NewError(utils.KindGenerationFailed, "roadmap generation failed",
			utils.NewError(utils.KindMalformedOutput, "", err))
	}

	g.log.Info("roadmap generated",
		"stages", len(stages),
		"adjust", req.Adjust,
		"progress", describeLog(req.ProgressLog),
		"elapsed", elapsed.String(),
	)
	return stages, nil
}

// withDefaults fills everything a caller may leave out.
func (g *Generator) withDefaults(req GenerationRequest) GenerationRequest {
	if strings.TrimSpace(req.Profile.EducationLevel) == "" {
		req.Profile.EducationLevel = strconv.Itoa(g.now().Year())
	}
	if req.Profile.Skills == nil {
		req.Profile.Skills = []string{}
	}
	if req.Profile.TargetCompanies == nil {
		req.Profile.TargetCompanies = []string{}
	}
	if req.Profile.Interests == nil {
		req.Profile.Interests = []string{}
	}
	if req.Weeks <= 0 {
		req.Weeks = req.Profile.Weeks
	}
	if req.Weeks <= 0 {
		req.Weeks = DefaultWeeks
	}
	return req
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
