package coordinator

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// SaveState 是单条排班变更的保存状态机：
// proposed（乐观应用，等待防抖）→ saving → saved / failed / conflicted
type SaveState string

const (
	SaveStateProposed   SaveState = "proposed"
	SaveStateSaving     SaveState = "saving"
	SaveStateSaved      SaveState = "saved"
	SaveStateFailed     SaveState = "failed"
	SaveStateConflicted SaveState = "conflicted"
)

type mutationOp string

const (
	opSave   mutationOp = "save"
	opDelete mutationOp = "delete"
)

// pendingMutation 跟踪一条排班上尚未确认的本地变更。
// 同一条排班的新变更会覆盖 assignment 并重置防抖计时器，
// 因此最终只有最新值会被发送到远端。
type pendingMutation struct {
	op          mutationOp
	assignment  *domain.Assignment // 最新的本地值（删除时为删除前的值）
	baseVersion int32              // 删除时用于版本条件检查
	state       SaveState
	retryable   bool
	timer       *time.Timer
	generation  int // 防止被取消的旧计时器触发过期的写入
}

// State 是协调器对外的只读视图（本地乐观状态）
type State struct {
	Date              string                       `json:"date"`
	Assignments       []*domain.Assignment         `json:"assignments"`
	Conflicts         []*domain.AssignmentConflict `json:"conflicts"`
	SaveStates        map[string]SaveState         `json:"saveStates"`
	Online            bool                         `json:"online"`
	HasUnsavedChanges bool                         `json:"hasUnsavedChanges"`
	LastSaved         time.Time                    `json:"lastSaved"`
}

type EventType string

const (
	EventStateChanged        EventType = "state_changed"
	EventSaveSucceeded       EventType = "save_succeeded"
	EventSaveFailed          EventType = "save_failed"
	EventConflictDetected    EventType = "conflict_detected"
	EventConflictResolved    EventType = "conflict_resolved"
	EventRemoteApplied       EventType = "remote_applied"
	EventConnectivityChanged EventType = "connectivity_changed"
)

// Event 广播给观察者（UI、日志、测试）的状态事件。
// 观察者只拿到通知，具体状态通过 Snapshot 读取，避免共享可变数据。
type Event struct {
	Type         EventType `json:"type"`
	AssignmentID string    `json:"assignmentID"`
	ConflictID   string    `json:"conflictID"`
	Message      string    `json:"message"`
}
