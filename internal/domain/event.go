package domain

import "time"

type ChangeEventType string

const (
	EventAssignmentAdded   ChangeEventType = "assignment_added"
	EventAssignmentUpdated ChangeEventType = "assignment_updated"
	EventAssignmentDeleted ChangeEventType = "assignment_deleted"
)

// ChangeEvent 是跨会话广播的远端变更事件
type ChangeEvent struct {
	Type         ChangeEventType `json:"type"`
	SessionID    string          `json:"sessionID"` // 事件来源会话，用于过滤自己发出的回声
	Date         string          `json:"date"`
	Assignment   *Assignment     `json:"assignment"` // 删除事件只携带 AssignmentID
	AssignmentID string          `json:"assignmentID"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

// NotificationMessage 投递给通知 worker 的消息
type NotificationMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ConflictMailData struct {
	PlannerName string `json:"plannerName"`
	Date        string `json:"date"`
	Message     string `json:"message"`
	DetectedAt  string `json:"detectedAt"`
}
