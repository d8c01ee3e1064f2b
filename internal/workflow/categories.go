package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"compliance-tracker-api/internal/models"

	"github.com/go-playground/validator/v10"
)

// Fields is a loosely typed task payload keyed by wire field name.
type Fields map[string]any

// FieldKind is the value type a rule expects.
type FieldKind int

const (
	KindString FieldKind = iota
	KindID
	KindNumber
	KindDate
	KindChoice
)

// FieldRule declares one field of a category schema. Tag is a validator tag
// applied once the value has the right kind.
type FieldRule struct {
	Name     string
	Kind     FieldKind
	Required bool
	Tag      string
}

// Schema is the ordered field set of one category.
type Schema struct {
	Category models.TaskCategory
	Fields   []FieldRule
}

var validate = validator.New()

const (
	dateTag     = "datetime=2006-01-02"
	categoryTag = "oneof=compliance financial_statement accounting_audit finance_implementation hr_implementation miscellaneous tax_case"
)

var baseFields = []FieldRule{
	{Name: "client", Kind: KindID, Required: true, Tag: "gte=1"},
	{Name: "category", Kind: KindChoice, Required: true, Tag: categoryTag},
	{Name: "description", Kind: KindString, Required: true, Tag: "max=4000"},
	{Name: "assigned_to", Kind: KindID, Required: true, Tag: "gte=1"},
	{Name: "priority", Kind: KindChoice, Required: true, Tag: "oneof=high medium low"},
	{Name: "deadline", Kind: KindDate, Required: true, Tag: dateTag},
	{Name: "remarks", Kind: KindString},
	{Name: "date_complied", Kind: KindDate, Tag: dateTag},
	{Name: "completion_date", Kind: KindDate, Tag: dateTag},
}

func periodFields(required bool) []FieldRule {
	return []FieldRule{
		{Name: "period_covered", Kind: KindString, Required: required},
		{Name: "engagement_date", Kind: KindDate, Required: required, Tag: dateTag},
	}
}

var categoryFields = map[models.TaskCategory][]FieldRule{
	models.CategoryCompliance: append([]FieldRule{
		{Name: "steps", Kind: KindString, Required: true},
		{Name: "requirements", Kind: KindString, Required: true},
	}, periodFields(true)...),
	models.CategoryFinancialStatement: append([]FieldRule{
		{Name: "type", Kind: KindChoice, Required: true, Tag: "oneof=quarterly annual"},
		{Name: "needed_data", Kind: KindString, Required: true},
	}, periodFields(true)...),
	models.CategoryAccountingAudit:       periodFields(true),
	models.CategoryFinanceImplementation: periodFields(false),
	models.CategoryHRImplementation:      periodFields(false),
	models.CategoryMiscellaneous: append([]FieldRule{
		{Name: "area", Kind: KindString, Required: true},
	}, periodFields(false)...),
	models.CategoryTaxCase: append([]FieldRule{
		{Name: "tax_category", Kind: KindChoice, Required: true, Tag: "oneof=OTE RP"},
		{Name: "tax_type", Kind: KindChoice, Required: true, Tag: "oneof=PT IT WE"},
		{Name: "form", Kind: KindChoice, Required: true, Tag: "oneof=2551Q 1701 0619E 1601EQ"},
		{Name: "working_paper", Kind: KindString, Required: true},
		{Name: "tax_payable", Kind: KindNumber, Required: true, Tag: "gte=0"},
		{Name: "last_followup", Kind: KindDate, Tag: dateTag},
	}, periodFields(true)...),
}

var categoryDisplay = map[models.TaskCategory]string{
	models.CategoryCompliance:            "Compliance",
	models.CategoryFinancialStatement:    "Financial Statement Preparation",
	models.CategoryAccountingAudit:       "Accounting / Auditing",
	models.CategoryFinanceImplementation: "Finance Implementation",
	models.CategoryHRImplementation:      "Human Resource Implementation",
	models.CategoryMiscellaneous:         "Miscellaneous Tasks",
	models.CategoryTaxCase:               "Tax",
}

// Categories lists every known category in display order.
func Categories() []models.TaskCategory {
	return []models.TaskCategory{
		models.CategoryAccountingAudit,
		models.CategoryCompliance,
		models.CategoryFinanceImplementation,
		models.CategoryFinancialStatement,
		models.CategoryHRImplementation,
		models.CategoryMiscellaneous,
		models.CategoryTaxCase,
	}
}

// IsKnownCategory reports whether c has a registered schema.
func IsKnownCategory(c models.TaskCategory) bool {
	_, ok := categoryFields[c]
	return ok
}

// CategoryDisplay returns the human label of c, or c itself when unknown.
func CategoryDisplay(c models.TaskCategory) string {
	if label, ok := categoryDisplay[c]; ok {
		return label
	}
	return string(c)
}

// SchemaFor returns the schema of category. Unknown categories get the base
// schema and ok=false; Validate rejects them.
func SchemaFor(category models.TaskCategory) (Schema, bool) {
	extra, ok := categoryFields[category]
	rules := make([]FieldRule, 0, len(baseFields)+len(extra))
	rules = append(rules, baseFields...)
	rules = append(rules, extra...)
	return Schema{Category: category, Fields: rules}, ok
}

// RequiredFields returns the required field names of category in schema order.
func RequiredFields(category models.TaskCategory) []string {
	schema, _ := SchemaFor(category)
	var names []string
	for _, r := range schema.Fields {
		if r.Required {
			names = append(names, r.Name)
		}
	}
	return names
}

// DefaultValues returns the initial payload of a new task in category.
func DefaultValues(category models.TaskCategory) Fields {
	d := Fields{
		"client":          nil,
		"category":        string(category),
		"description":     "",
		"assigned_to":     nil,
		"priority":        string(models.PriorityMedium),
		"deadline":        "",
		"remarks":         "",
		"date_complied":   nil,
		"completion_date": nil,
	}
	for _, r := range categoryFields[category] {
		switch r.Kind {
		case KindNumber:
			d[r.Name] = float64(0)
		case KindString:
			d[r.Name] = ""
		default:
			d[r.Name] = nil
		}
	}
	return d
}

// WithDefaults returns a copy of fields with defaults filled in for absent keys.
func WithDefaults(fields Fields) Fields {
	cat, _ := fields["category"].(string)
	out := Fields{}
	for k, v := range DefaultValues(models.TaskCategory(cat)) {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Names returns the field names of the schema in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, r := range s.Fields {
		names[i] = r.Name
	}
	return names
}

// Filter keeps only the schema's fields and turns blank optional dates into nil.
func (s Schema) Filter(fields Fields) Fields {
	out := Fields{}
	for _, r := range s.Fields {
		v, ok := fields[r.Name]
		if !ok {
			continue
		}
		if r.Kind == KindDate && isBlank(v) {
			v = nil
		}
		out[r.Name] = v
	}
	return out
}

// Validate checks fields against the schema of its category.
func Validate(fields Fields) error {
	cat, _ := fields["category"].(string)
	schema, known := SchemaFor(models.TaskCategory(cat))

	var errs []FieldError
	for _, r := range schema.Fields {
		if r.Name == "category" && !known {
			if isBlank(fields["category"]) {
				errs = append(errs, FieldError{Field: "category", Message: "This field is required."})
			} else {
				errs = append(errs, FieldError{Field: "category", Message: fmt.Sprintf("%q is not a valid category.", cat)})
			}
			continue
		}
		if msg := checkRule(r, fields[r.Name]); msg != "" {
			errs = append(errs, FieldError{Field: r.Name, Message: msg})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkRule(r FieldRule, v any) string {
	if isBlank(v) {
		if r.Required {
			return "This field is required."
		}
		return ""
	}

	var value any
	switch r.Kind {
	case KindString, KindDate, KindChoice:
		s, ok := v.(string)
		if !ok {
			return "Must be a string."
		}
		value = strings.TrimSpace(s)
	case KindID:
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			return "Must be a valid id."
		}
		value = n
	case KindNumber:
		n, ok := toFloat(v)
		if !ok {
			return "Must be a number."
		}
		value = n
	}

	if r.Tag == "" {
		return ""
	}
	if err := validate.Var(value, r.Tag); err != nil {
		return tagMessage(err)
	}
	return ""
}

func tagMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid value."
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return "Must be a date in YYYY-MM-DD format."
	}
	return "Invalid value."
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
