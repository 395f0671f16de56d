package domain

import (
	"fmt"
	"time"
)

type ConflictType string

const (
	ConflictVersionMismatch  ConflictType = "version_mismatch"  // 防抖写入被服务器以版本不一致拒绝
	ConflictConcurrentUpdate ConflictType = "concurrent_update" // 远端变更命中了有未同步本地修改的排班
	ConflictConcurrentDelete ConflictType = "concurrent_delete" // 远端删除命中了有未同步本地修改的排班
)

// AssignmentConflict 记录一次本地修改和远端状态之间的分歧。
// 冲突一旦产生就必须由用户显式解决，系统不允许悄悄丢弃。
type AssignmentConflict struct {
	ID                  string       `json:"id"`
	Type                ConflictType `json:"type"`
	AffectedAssignments []string     `json:"affectedAssignments"`
	LocalChange         *Assignment  `json:"localChange"`
	RemoteChange        *Assignment  `json:"remoteChange"` // 远端删除时为 nil
	Message             string       `json:"message"`
	DetectedAt          time.Time    `json:"detectedAt"`
}

type ResolutionAction string

const (
	ResolutionAcceptLocal  ResolutionAction = "accept_local"
	ResolutionAcceptRemote ResolutionAction = "accept_remote"
	ResolutionMerge        ResolutionAction = "merge"
)

type ConflictResolution struct {
	Action             ResolutionAction `json:"action"`
	ResolvedAssignment *Assignment      `json:"resolvedAssignment"` // 仅 merge 时必填，由调用方给出合并后的最终值
}

type PersistenceErrorType string

const (
	PersistenceErrNetwork  PersistenceErrorType = "network"
	PersistenceErrConflict PersistenceErrorType = "conflict"
	PersistenceErrUnknown  PersistenceErrorType = "unknown"
)

// PersistenceError 包装一次远端读写失败。
// network 类错误可以重试，conflict 类错误会转化为 AssignmentConflict 而不是盲目重试。
type PersistenceError struct {
	Type      PersistenceErrorType
	Retryable bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化错误 (%s, retryable=%v): %v", e.Type, e.Retryable, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewNetworkError(err error) *PersistenceError {
	return &PersistenceError{Type: PersistenceErrNetwork, Retryable: true, Err: err}
}

func NewConflictError(err error) *PersistenceError {
	return &PersistenceError{Type: PersistenceErrConflict, Retryable: false, Err: err}
}

func NewUnknownError(err error) *PersistenceError {
	return &PersistenceError{Type: PersistenceErrUnknown, Retryable: false, Err: err}
}
