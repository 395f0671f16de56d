package domain

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// Blocking 判断该严重程度是否会阻止提交（error 及以上）
func (s Severity) Blocking() bool {
	return severityRank[s] >= severityRank[SeverityError]
}

func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

type ConstraintViolation struct {
	ConstraintID        string   `json:"constraintID"`
	Severity            Severity `json:"severity"`
	Message             string   `json:"message"`
	AffectedAssignments []string `json:"affectedAssignments"`
	SuggestedActions    []string `json:"suggestedActions"`
}

type ValidationErrorKind string

const (
	ErrKindCapacityExceeded    ValidationErrorKind = "capacity_exceeded"
	ErrKindSkillMismatch       ValidationErrorKind = "skill_mismatch"
	ErrKindEmployeeUnavailable ValidationErrorKind = "employee_unavailable"
	ErrKindDuplicateAssignment ValidationErrorKind = "duplicate_assignment"
)

// ValidationIssue 是单个校验问题，永远以内联数据的形式返回给用户，不会作为 error 抛出
type ValidationIssue struct {
	Kind    ValidationErrorKind `json:"kind"`
	Message string              `json:"message"`
}

type ValidationResult struct {
	IsValid     bool              `json:"isValid"`
	Errors      []ValidationIssue `json:"errors"`
	Warnings    []ValidationIssue `json:"warnings"`
	Suggestions []string          `json:"suggestions"`
}
