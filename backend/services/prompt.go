package services

import (
	"fmt"
	"strings"

	"career-roadmap/backend/models"
)

const stageSchema = `[
  {
    "title": "string",
    "tasks": ["string"],
    "daily_goal": "string",
    "why_important": "string",
    "resources": [
      {"title": "string", "url": "string", "type": "video|article|course|documentation|practice|other", "description": "string"}
    ]
  }
]`

// BuildPrompt renders the instruction sent to the model. The same request always
// yields the same text.
func BuildPrompt(req GenerationRequest) string {
	var b strings.Builder

	b.WriteString("You are a JSON generator.\n\n")
	b.WriteString("Return ONLY a valid JSON array.\n")
	b.WriteString("Do NOT include any text outside JSON.\n")
	b.WriteString("Do NOT use markdown, backticks, or comments.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(stageSchema)
	b.WriteString("\n\nContext:\n")
	fmt.Fprintf(&b, "- Education level: %s\n", req.Profile.EducationLevel)
	fmt.Fprintf(&b, "- Skills: %s\n", strings.Join(req.Profile.Skills, ", "))
	fmt.Fprintf(&b, "- Target Companies: %s\n", strings.Join(req.Profile.TargetCompanies, ", "))
	if len(req.Profile.Interests) > 0 {
		fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(req.Profile.Interests, ", "))
	}

	if len(req.ProgressLog) > 0 {
		b.WriteString("\nProgress so far (stage is the zero-based week, -1 means the learner reported being off track):\n")
		for _, e := range req.ProgressLog {
			fmt.Fprintf(&b, "- date=%s stage=%d completion=%.2f", e.Date, e.StageIndex, e.CompletionRate)
			if e.Note != "" {
				fmt.Fprintf(&b, " note=%q", e.Note)
			}
			b.WriteString("\n")
		}
	}

	if req.Adjust {
		b.WriteString("\nThe learner is struggling with the current plan. ")
		b.WriteString("Course-correct: lighten the weekly load, add remedial tasks for unfinished material, ")
		b.WriteString("and rebuild the remaining weeks around what they have actually completed.\n")
	}

	fmt.Fprintf(&b, "\nCreate exactly %d objects (%d weeks), one per week, in order.\n", req.Weeks, req.Weeks)
	return b.String()
}

func describeLog(log []models.ProgressLogEntry) string {
	if len(log) == 0 {
		return "none"
	}
	last := log[len(log)-1]
	return fmt.Sprintf("%d entries, last stage=%d completion=%.2f", len(log), last.StageIndex, last.CompletionRate)
}
