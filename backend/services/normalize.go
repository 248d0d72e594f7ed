package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"career-roadmap/backend/models"
	"career-roadmap/backend/utils"

	"github.com/go-playground/validator/v10"
)

// All request defaulting and field-name aliasing lives in this file.

const dateLayout = "2006-01-02"

var (
	educationKeys  = []string{"education_level", "educationLevel", "education", "year"}
	skillsKeys     = []string{"skills"}
	companiesKeys  = []string{"companies", "target_companies", "targetCompanies"}
	interestsKeys  = []string{"interests"}
	weeksKeys      = []string{"weeks", "duration", "stages"}
	stageKeys      = []string{"stage", "stage_index", "stageIndex"}
	completionKeys = []string{"completion_rate", "completionRate", "completion"}
	dateKeys       = []string{"date"}
	noteKeys       = []string{"note", "notes"}
)

// GenerateInput is a roadmap creation request after normalization.
type GenerateInput struct {
	EducationLevel  string   `json:"education_level" validate:"required"`
	Skills          []string `json:"skills" validate:"required,min=1,dive,required"`
	TargetCompanies []string `json:"companies" validate:"required,min=1,dive,required"`
	Interests       []string `json:"interests" validate:"dive,required"`
	Weeks           int      `json:"weeks" validate:"min=1"`
}

func (in GenerateInput) Profile() models.UserProfile {
	return models.UserProfile{
		EducationLevel:  in.EducationLevel,
		Skills:          in.Skills,
		TargetCompanies: in.TargetCompanies,
		Interests:       in.Interests,
		Weeks:           in.Weeks,
	}
}

// ProgressInput is a progress report after normalization.
type ProgressInput struct {
	StageIndex     int     `json:"stage" validate:"min=-1"`
	CompletionRate float64 `json:"completion_rate" validate:"min=0,max=1"`
	Date           string  `json:"date" validate:"required,isodate"`
	Note           string  `json:"note" validate:"max=2000"`
}

func (in ProgressInput) Entry() models.ProgressLogEntry {
	return models.ProgressLogEntry{
		StageIndex:     in.StageIndex,
		CompletionRate: in.CompletionRate,
		Date:           in.Date,
		Note:           in.Note,
	}
}

// Normalizer turns loosely shaped JSON bodies into validated inputs.
type Normalizer struct {
	validate     *validator.Validate
	defaultWeeks int
	maxWeeks     int
	now          func() time.Time
}

func NewNormalizer(defaultWeeks, maxWeeks int) *Normalizer {
	if defaultWeeks <= 0 {
		defaultWeeks = DefaultWeeks
	}
	if maxWeeks < defaultWeeks {
		maxWeeks = defaultWeeks
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})
	return &Normalizer{validate: v, defaultWeeks: defaultWeeks, maxWeeks: maxWeeks, now: time.Now}
}

// GenerateInput decodes a creation body. Required fields are education level,
// skills and companies; interests and weeks are optional. Weeks defaults only
// when absent.
func (n *Normalizer) GenerateInput(body []byte) (GenerateInput, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return GenerateInput{}, err
	}

	problems := map[string]string{}
	in := GenerateInput{
		EducationLevel:  stringField(fields, educationKeys),
		Skills:          listField(fields, skillsKeys),
		TargetCompanies: listField(fields, companiesKeys),
		Interests:       listField(fields, interestsKeys),
		Weeks:           n.defaultWeeks,
	}
	if in.Interests == nil {
		in.Interests = []string{}
	}
	if raw, ok := lookup(fields, weeksKeys); ok {
		w, err := toInt(raw)
		if err != nil {
			problems["weeks"] = "must be a whole number"
		} else {
			in.Weeks = w
		}
	}

	if err := n.check(in, problems); err != nil {
		return GenerateInput{}, err
	}
	if in.Weeks > n.maxWeeks {
		return GenerateInput{}, utils.ValidationErr("invalid roadmap request",
			map[string]string{"weeks": fmt.Sprintf("must be at most %d", n.maxWeeks)})
	}
	return in, nil
}

// ProgressInput decodes an update body. A missing date becomes today's date;
// a whole-number completion rate from 2 to 100 is read as a percentage.
func (n *Normalizer) ProgressInput(body []byte) (ProgressInput, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return ProgressInput{}, err
	}

	problems := map[string]string{}
	var in ProgressInput

	if raw, ok := lookup(fields, stageKeys); ok {
		v, err := toInt(raw)
		if err != nil {
			problems["stage"] = "must be a whole number"
		}
		in.StageIndex = v
	} else {
		problems["stage"] = "is required"
	}

	if raw, ok := lookup(fields, completionKeys); ok {
		v, err := toFloat(raw)
		if err != nil {
			problems["completion_rate"] = "must be a number"
		}
		if isPercentage(v) {
			v = v / 100
		}
		in.CompletionRate = v
	} else {
		problems["completion_rate"] = "is required"
	}

	in.Date = stringField(fields, dateKeys)
	if in.Date == "" {
		in.Date = n.now().UTC().Format(dateLayout)
	} else if d, err := parseDate(in.Date); err == nil {
		in.Date = d.Format(dateLayout)
	}
	in.Note = stringField(fields, noteKeys)

	if err := n.check(in, problems); err != nil {
		return ProgressInput{}, err
	}
	return in, nil
}

// isPercentage reports whether v is a whole percent. Fractions above 1 are not
// percentages and fail validation.
func isPercentage(v float64) bool {
	return v > 1 && v <= 100 && v == math.Trunc(v)
}

func (n *Normalizer) check(in interface{}, problems map[string]string) error {
	if err := n.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return utils.ValidationErr(err.Error(), nil)
		}
		for _, fe := range verrs {
			field := strings.SplitN(fe.Field(), "[", 2)[0]
			if _, seen := problems[field]; !seen {
				problems[field] = describeTag(fe)
			}
		}
	}
	if len(problems) > 0 {
		return utils.ValidationErr("invalid request: "+joinProblems(problems), problems)
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "isodate":
		return "must be an ISO-8601 date"
	}
	return "is invalid"
}

func joinProblems(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+p[k])
	}
	return strings.Join(parts, "; ")
}

func decodeObject(body []byte) (map[string]interface{}, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return map[string]interface{}{}, nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, utils.ValidationErr("request body must be a JSON object", nil)
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return fields, nil
}

func lookup(fields map[string]interface{}, keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(fields map[string]interface{}, keys []string) string {
	v, ok := lookup(fields, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// listField accepts a JSON array of strings or a comma separated string. Order
// is kept, blanks are dropped, duplicates are kept.
func listField(fields map[string]interface{}, keys []string) []string {
	v, ok := lookup(fields, keys)
	if !ok {
		return nil
	}
	out := []string{}
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, item := range t {
			if s := strings.TrimSpace(fmt.Sprint(item)); item != nil && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func toInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("not an integer")
		}
		return int(t), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 date: %q", s)
}
