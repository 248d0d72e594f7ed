package controllers

import (
	"time"

	"career-roadmap/backend/models"
	"career-roadmap/backend/services"
	"career-roadmap/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type RoadmapController struct {
	Lifecycle  *services.Lifecycle
	Normalizer *services.Normalizer
	Log        *utils.Logger
}

func NewRoadmapController(lc *services.Lifecycle, n *services.Normalizer, log *utils.Logger) *RoadmapController {
	return &RoadmapController{Lifecycle: lc, Normalizer: n, Log: log.With("component", "roadmap_controller")}
}

// GenerateResponse echoes the profile fields next to the new roadmap.
type GenerateResponse struct {
	ID      string                `json:"id"`
	Roadmap []models.RoadmapStage `json:"roadmap"`
	models.UserProfile
	CreatedAt time.Time `json:"created_at"`
}

// UpdateResponse is the updated record plus what happened to its stages.
type UpdateResponse struct {
	*models.RoadmapRecord
	Regeneration services.Regeneration `json:"regeneration"`
}

// Generate godoc
// @Summary Generate a roadmap
// @Description Builds a week-by-week roadmap from the learner profile and stores it
// @Tags roadmaps
// @Accept json
// @Produce json
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /roadmaps/generate [post]
func (rc *RoadmapController) Generate(c *fiber.Ctx) error {
	in, err := rc.Normalizer.GenerateInput(c.Body())
	if err != nil {
		return utils.Error(c, err)
	}

	rec, err := rc.Lifecycle.Create(c.UserContext(), in)
	if err != nil {
		rc.Log.Error("roadmap generation failed", "error", err.Error(), "kind", string(utils.KindOf(err)))
		return utils.Error(c, err)
	}

	return utils.Success(c, fiber.StatusOK, GenerateResponse{
		ID:          rec.ID,
		Roadmap:     rec.Stages,
		UserProfile: rec.UserProfile,
		CreatedAt:   rec.CreatedAt,
	})
}

// GetRoadmap godoc
// @Summary Get a roadmap
// @Tags roadmaps
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} models.RoadmapRecord
// @Failure 404 {object} utils.ErrorResponse
// @Router /roadmaps/{id} [get]
func (rc *RoadmapController) GetRoadmap(c *fiber.Ctx) error {
	rec, err := rc.Lifecycle.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.StatusOK, rec)
}

// UpdateProgress godoc
// @Summary Report progress on a roadmap
// @Description Appends a progress entry. A low completion rate or stage -1 regenerates the remaining plan.
// @Tags roadmaps
// @Accept json
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} UpdateResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /roadmaps/{id}/update [post]
func (rc *RoadmapController) UpdateProgress(c *fiber.Ctx) error {
	in, err := rc.Normalizer.ProgressInput(c.Body())
	if err != nil {
		return utils.Error(c, err)
	}

	res, err := rc.Lifecycle.UpdateProgress(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return utils.Error(c, err)
	}

	return utils.Success(c, fiber.StatusOK, UpdateResponse{
		RoadmapRecord: res.Record,
		Regeneration:  res.Regeneration,
	})
}

// ListRoadmaps godoc
// @Summary List recent roadmaps
// @Tags roadmaps
// @Produce json
// @Success 200 {array} models.RoadmapRecord
// @Router /roadmaps [get]
func (rc *RoadmapController) ListRoadmaps(c *fiber.Ctx) error {
	list, err := rc.Lifecycle.List(c.UserContext())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.StatusOK, list)
}

// DeleteRoadmap godoc
// @Summary Delete a roadmap
// @Tags roadmaps
// @Produce json
// @Param id path string true "Roadmap ID"
// @Success 200 {object} utils.MessageResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /roadmaps/{id} [delete]
func (rc *RoadmapController) DeleteRoadmap(c *fiber.Ctx) error {
	if err := rc.Lifecycle.Delete(c.UserContext(), c.Params("id")); err != nil {
		return utils.Error(c, err)
	}
	return utils.Message(c, "Roadmap deleted")
}
