package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/repository"
)

// ErrMergeRequiresAssignment 表示 merge 解决方式缺少调用方提供的最终值
var ErrMergeRequiresAssignment = errors.New("merge 解决方式必须提供合并后的排班")

// conflictFor 查找某条排班上未解决的冲突
func (c *Coordinator) conflictFor(assignmentID string) *domain.AssignmentConflict {
	for _, conflictID := range c.conflictOrder {
		conflict, exists := c.conflicts[conflictID]
		if !exists {
			continue
		}
		for _, id := range conflict.AffectedAssignments {
			if id == assignmentID {
				return conflict
			}
		}
	}
	return nil
}

// updateConflictLocalChange 把冲突中记录的本地值同步为最新的本地编辑
func (c *Coordinator) updateConflictLocalChange(assignmentID string, a *domain.Assignment) {
	if conflict := c.conflictFor(assignmentID); conflict != nil {
		conflict.LocalChange = a.Clone()
	}
}

func (c *Coordinator) addConflict(conflict *domain.AssignmentConflict) {
	c.conflicts[conflict.ID] = conflict
	c.conflictOrder = append(c.conflictOrder, conflict.ID)
	c.notify(Event{Type: EventConflictDetected, ConflictID: conflict.ID, Message: conflict.Message})

	if c.publisher != nil && c.plannerEmail != "" {
		msg := &domain.NotificationMessage{
			Type: "conflict_detected",
			To:   c.plannerEmail,
			Data: domain.ConflictMailData{
				PlannerName: c.sessionID,
				Date:        c.date,
				Message:     conflict.Message,
				DetectedAt:  conflict.DetectedAt.Format(time.RFC3339),
			},
		}
		if err := c.publisher.PublishConflictNotification(msg); err != nil {
			slog.Error("冲突通知投递失败", "conflictID", conflict.ID, "error", err)
		}
	}
}

// raiseWriteConflict 把一次被远端拒绝的防抖写入转化为冲突记录
func (c *Coordinator) raiseWriteConflict(id string, entry *pendingMutation) {
	remote, err := c.store.GetAssignmentByID(id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		// 连远端当前值都取不到，按可重试的保存失败处理
		entry.state = SaveStateFailed
		entry.retryable = true
		c.scheduleFlush(id, entry)
		return
	}

	conflictType := domain.ConflictVersionMismatch
	message := fmt.Sprintf("排班 %s 的本地修改与远端版本不一致", id)
	if remote == nil {
		conflictType = domain.ConflictConcurrentDelete
		message = fmt.Sprintf("排班 %s 在远端已被其他会话删除", id)
	}

	entry.state = SaveStateConflicted
	if entry.timer != nil {
		entry.timer.Stop()
	}

	c.addConflict(&domain.AssignmentConflict{
		ID:                  uuid.NewString(),
		Type:                conflictType,
		AffectedAssignments: []string{id},
		LocalChange:         entry.assignment.Clone(),
		RemoteChange:        remote,
		Message:             message,
		DetectedAt:          time.Now(),
	})
}

/**********************************************
 * 远端事件处理
 **********************************************/

// handleRemoteEvent 按投递顺序应用远端变更。
// 命中了有未同步本地修改的排班时产生冲突而不是静默覆盖；
// 命中了有未解决冲突的排班时排队等待冲突解决。
func (c *Coordinator) handleRemoteEvent(event *domain.ChangeEvent) {
	if event.SessionID == c.sessionID {
		// 自己发出的事件的回声
		return
	}
	if event.Date != "" && event.Date != c.date {
		// fanout 交换机会把所有会话的事件都投递过来，
		// 其他规划日期的变更与本会话无关
		return
	}

	id := event.AssignmentID
	if id == "" && event.Assignment != nil {
		id = event.Assignment.ID
	}
	if id == "" {
		return
	}

	if c.conflictFor(id) != nil {
		c.deferredEvents[id] = append(c.deferredEvents[id], event)
		return
	}

	if entry, exists := c.pending[id]; exists {
		c.raiseRemoteConflict(id, entry, event)
		return
	}

	c.applyRemoteEvent(id, event)
}

func (c *Coordinator) raiseRemoteConflict(id string, entry *pendingMutation, event *domain.ChangeEvent) {
	conflictType := domain.ConflictConcurrentUpdate
	message := fmt.Sprintf("排班 %s 被其他会话修改，与本地未同步的修改冲突", id)
	if event.Type == domain.EventAssignmentDeleted {
		conflictType = domain.ConflictConcurrentDelete
		message = fmt.Sprintf("排班 %s 被其他会话删除，与本地未同步的修改冲突", id)
	}

	entry.state = SaveStateConflicted
	if entry.timer != nil {
		entry.timer.Stop()
	}

	var remoteChange *domain.Assignment
	if event.Assignment != nil {
		remoteChange = event.Assignment.Clone()
	}

	c.addConflict(&domain.AssignmentConflict{
		ID:                  uuid.NewString(),
		Type:                conflictType,
		AffectedAssignments: []string{id},
		LocalChange:         entry.assignment.Clone(),
		RemoteChange:        remoteChange,
		Message:             message,
		DetectedAt:          time.Now(),
	})
}

func (c *Coordinator) applyRemoteEvent(id string, event *domain.ChangeEvent) {
	switch event.Type {
	case domain.EventAssignmentAdded, domain.EventAssignmentUpdated:
		if event.Assignment == nil {
			return
		}
		incoming := event.Assignment.Clone()
		replaced := false
		for i, existing := range c.data.Assignments {
			if existing.ID == id {
				c.data.Assignments[i] = incoming
				replaced = true
				break
			}
		}
		if !replaced {
			c.data.Assignments = append(c.data.Assignments, incoming)
		}
	case domain.EventAssignmentDeleted:
		for i, existing := range c.data.Assignments {
			if existing.ID == id {
				c.data.Assignments = append(c.data.Assignments[:i], c.data.Assignments[i+1:]...)
				break
			}
		}
	default:
		return
	}

	c.notify(Event{Type: EventRemoteApplied, AssignmentID: id})
}

/**********************************************
 * 冲突解决
 **********************************************/

// ResolveConflict 执行用户选择的冲突解决方式。
// 冲突 id 不存在（例如已在别处解决）时静默返回 nil，保证幂等。
func (c *Coordinator) ResolveConflict(conflictID string, resolution domain.ConflictResolution) error {
	var resolveErr error
	c.do(func() {
		conflict, exists := c.conflicts[conflictID]
		if !exists {
			return
		}

		if len(conflict.AffectedAssignments) == 0 {
			return
		}
		id := conflict.AffectedAssignments[0]

		switch resolution.Action {
		case domain.ResolutionAcceptLocal:
			resolveErr = c.resolveAcceptLocal(id)
		case domain.ResolutionAcceptRemote:
			c.resolveAcceptRemote(id, conflict)
		case domain.ResolutionMerge:
			resolveErr = c.resolveMerge(id, resolution.ResolvedAssignment)
		default:
			resolveErr = fmt.Errorf("不支持的冲突解决方式: %s", resolution.Action)
		}

		if resolveErr != nil {
			// 解决失败时冲突保持未解决状态，用户可以重试
			return
		}

		c.removeConflict(conflictID)
		c.notify(Event{Type: EventConflictResolved, ConflictID: conflictID, AssignmentID: id})
		c.replayDeferred(id)
	})
	return resolveErr
}

// resolveAcceptLocal 用本地版本覆盖远端
func (c *Coordinator) resolveAcceptLocal(id string) error {
	entry, exists := c.pending[id]
	if !exists {
		return nil
	}

	if entry.op == opDelete {
		if err := c.store.ForceRemoveAssignment(id); err != nil {
			return classifyError(err)
		}
	} else {
		if err := c.store.OverwriteAssignment(entry.assignment); err != nil {
			return classifyError(err)
		}
	}

	c.completeSave(id, entry)
	return nil
}

// resolveAcceptRemote 放弃本地乐观修改，采用远端版本。
// 这是唯一允许丢弃本地修改的路径，必须出自用户的显式选择。
func (c *Coordinator) resolveAcceptRemote(id string, conflict *domain.AssignmentConflict) {
	if entry, exists := c.pending[id]; exists {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(c.pending, id)
	}
	c.hasUnsavedChanges = len(c.pending) > 0

	if conflict.RemoteChange == nil {
		// 远端已删除，本地也删掉
		for i, existing := range c.data.Assignments {
			if existing.ID == id {
				c.data.Assignments = append(c.data.Assignments[:i], c.data.Assignments[i+1:]...)
				break
			}
		}
		return
	}

	incoming := conflict.RemoteChange.Clone()
	replaced := false
	for i, existing := range c.data.Assignments {
		if existing.ID == id {
			c.data.Assignments[i] = incoming
			replaced = true
			break
		}
	}
	if !replaced {
		c.data.Assignments = append(c.data.Assignments, incoming)
	}
}

// resolveMerge 把调用方给出的合并结果同时写到本地和远端。
// 字段级的合并策略由调用方决定，协调器只负责落地最终值。
func (c *Coordinator) resolveMerge(id string, resolved *domain.Assignment) error {
	if resolved == nil {
		return ErrMergeRequiresAssignment
	}
	resolved.ID = id

	if err := c.store.OverwriteAssignment(resolved); err != nil {
		return classifyError(err)
	}

	replaced := false
	for i, existing := range c.data.Assignments {
		if existing.ID == id {
			c.data.Assignments[i] = resolved
			replaced = true
			break
		}
	}
	if !replaced {
		c.data.Assignments = append(c.data.Assignments, resolved)
	}

	if entry, exists := c.pending[id]; exists {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(c.pending, id)
	}
	c.hasUnsavedChanges = len(c.pending) > 0
	c.lastSaved = time.Now()
	c.writeSnapshot()
	c.publishChange(&pendingMutation{op: opSave, assignment: resolved})

	return nil
}

func (c *Coordinator) removeConflict(conflictID string) {
	delete(c.conflicts, conflictID)
	for i, id := range c.conflictOrder {
		if id == conflictID {
			c.conflictOrder = append(c.conflictOrder[:i], c.conflictOrder[i+1:]...)
			break
		}
	}
}

// replayDeferred 冲突解决后按投递顺序重放排队的远端事件
func (c *Coordinator) replayDeferred(id string) {
	events := c.deferredEvents[id]
	if len(events) == 0 {
		return
	}
	delete(c.deferredEvents, id)

	for _, event := range events {
		c.handleRemoteEvent(event)
	}
}
