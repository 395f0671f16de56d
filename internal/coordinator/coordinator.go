package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/repository"
)

// RemoteStore 是协调器看到的远端持久化接口，由 repository 实现
type RemoteStore interface {
	LoadPlanningData(date string) (*domain.PlanningData, error)
	SaveAssignment(a *domain.Assignment) error
	RemoveAssignment(id string, version int32) error
	GetAssignmentByID(id string) (*domain.Assignment, error)
	OverwriteAssignment(a *domain.Assignment) error
	ForceRemoveAssignment(id string) error
}

// EventPublisher 把本会话确认的变更广播给其他会话，由 broker 实现
type EventPublisher interface {
	PublishChange(event *domain.ChangeEvent) error
	PublishConflictNotification(msg *domain.NotificationMessage) error
}

type Options struct {
	SessionID        string
	PlannerEmail     string
	Date             string
	DebounceInterval time.Duration // 默认 300ms
	SnapshotMaxAge   time.Duration // 默认 24 小时
	Store            RemoteStore
	Publisher        EventPublisher
	Cache            FallbackCache
	RemoteEvents     <-chan *domain.ChangeEvent
}

// Coordinator 是单个规划会话的状态所有者。
// 会话内的所有状态变更都经由 commands 通道在 Run 循环中串行执行，
// 会话之间的并发由远端的版本检查和事件广播来协调。
type Coordinator struct {
	sessionID    string
	plannerEmail string
	date         string
	debounce     time.Duration
	maxAge       time.Duration

	store     RemoteStore
	publisher EventPublisher
	cache     FallbackCache
	remote    <-chan *domain.ChangeEvent

	commands chan func()
	stopped  chan struct{} // Run 退出时关闭，解除所有阻塞在 commands 上的调用方

	// 以下字段只允许在 Run 循环中访问
	data              *domain.PlanningData
	pending           map[string]*pendingMutation
	conflicts         map[string]*domain.AssignmentConflict
	conflictOrder     []string
	deferredEvents    map[string][]*domain.ChangeEvent // 排在未解决冲突后面的远端事件
	observers         []chan Event
	online            bool
	hasUnsavedChanges bool
	lastSaved         time.Time
}

func New(opts Options) *Coordinator {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.DebounceInterval <= 0 {
		opts.DebounceInterval = 300 * time.Millisecond
	}
	if opts.SnapshotMaxAge <= 0 {
		opts.SnapshotMaxAge = 24 * time.Hour
	}

	return &Coordinator{
		sessionID:    opts.SessionID,
		plannerEmail: opts.PlannerEmail,
		date:         opts.Date,
		debounce:     opts.DebounceInterval,
		maxAge:       opts.SnapshotMaxAge,
		store:        opts.Store,
		publisher:    opts.Publisher,
		cache:        opts.Cache,
		remote:       opts.RemoteEvents,

		commands: make(chan func()),
		stopped:  make(chan struct{}),

		data:           &domain.PlanningData{Date: opts.Date},
		pending:        map[string]*pendingMutation{},
		conflicts:      map[string]*domain.AssignmentConflict{},
		conflictOrder:  []string{},
		deferredEvents: map[string][]*domain.ChangeEvent{},
		online:         true,
	}
}

func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// Run 是会话的唯一事件循环，直到 ctx 取消为止。
// 本地变更按调用顺序执行，远端事件按投递顺序执行。
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// 先解除所有阻塞在 commands 上的调用方和计时器回调
			close(c.stopped)
			// 停掉所有防抖计时器，未同步的修改保留在内存中由调用方决定去留
			for _, entry := range c.pending {
				if entry.timer != nil {
					entry.timer.Stop()
				}
			}
			for _, observer := range c.observers {
				close(observer)
			}
			return
		case cmd := <-c.commands:
			cmd()
		case event, ok := <-c.remote:
			if !ok {
				c.remote = nil
				continue
			}
			c.handleRemoteEvent(event)
		}
	}
}

// do 把闭包投递到事件循环中执行并等待完成。
// 会话已关闭时直接返回，操作成为空操作而不是永久阻塞。
func (c *Coordinator) do(fn func()) {
	done := make(chan struct{})
	select {
	case c.commands <- func() {
		fn()
		close(done)
	}:
	case <-c.stopped:
		return
	}

	select {
	case <-done:
	case <-c.stopped:
	}
}

/**********************************************
 * 初始加载
 **********************************************/

// Load 加载当天的规划数据。
// 远端加载失败时回退到本地缓存快照（超过时效的快照会被忽略），
// 并将会话标记为离线。
func (c *Coordinator) Load() error {
	var loadErr error
	c.do(func() {
		data, err := c.store.LoadPlanningData(c.date)
		if err == nil {
			c.data = data
			c.online = true
			c.writeSnapshot()
			c.notify(Event{Type: EventStateChanged})
			return
		}

		slog.Warn("远端加载失败，尝试本地回退缓存", "date", c.date, "error", err)

		if c.cache != nil {
			snapshot, cacheErr := c.cache.Load(c.date)
			if cacheErr == nil && snapshot != nil && time.Since(snapshot.Timestamp) <= c.maxAge {
				c.data = &domain.PlanningData{
					Date:        c.date,
					Assignments: snapshot.Assignments,
				}
				c.online = false
				c.notify(Event{Type: EventConnectivityChanged, Message: "使用本地缓存数据，当前处于离线状态"})
				return
			}
		}

		loadErr = err
	})
	return loadErr
}

/**********************************************
 * 本地变更（乐观应用 + 防抖写入）
 **********************************************/

// AddAssignment 乐观地新增一条排班，立即在本地可见，异步写入远端
func (c *Coordinator) AddAssignment(a *domain.Assignment) *domain.Assignment {
	var result *domain.Assignment
	c.do(func() {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Status == "" {
			a.Status = domain.AssignmentProposed
		}
		if a.CreatedBy == "" {
			a.CreatedBy = c.sessionID
		}
		now := time.Now()
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now

		c.data.Assignments = append(c.data.Assignments, a)
		c.enqueueSave(a)
		result = a.Clone()
		c.notify(Event{Type: EventStateChanged, AssignmentID: a.ID})
	})
	return result
}

// UpdateAssignment 乐观地更新一条排班。返回 false 表示本地不存在该排班
func (c *Coordinator) UpdateAssignment(a *domain.Assignment) bool {
	var found bool
	c.do(func() {
		for i, existing := range c.data.Assignments {
			if existing.ID != a.ID {
				continue
			}
			found = true

			a.CreatedAt = existing.CreatedAt
			a.CreatedBy = existing.CreatedBy
			a.Version = existing.Version
			a.UpdatedAt = time.Now()
			c.data.Assignments[i] = a

			c.enqueueSave(a)
			c.notify(Event{Type: EventStateChanged, AssignmentID: a.ID})
			return
		}
	})
	return found
}

// DeleteAssignment 本地先删，远端确认在防抖之后
func (c *Coordinator) DeleteAssignment(id string) bool {
	var found bool
	c.do(func() {
		for i, existing := range c.data.Assignments {
			if existing.ID != id {
				continue
			}
			found = true

			c.data.Assignments = append(c.data.Assignments[:i], c.data.Assignments[i+1:]...)
			c.enqueueDelete(existing)
			c.notify(Event{Type: EventStateChanged, AssignmentID: id})
			return
		}
	})
	return found
}

// ForceSave 跳过防抖立即把所有待写入的变更发往远端，
// 包括那些因为不可重试错误而停住的变更
func (c *Coordinator) ForceSave() {
	c.do(func() {
		for id, entry := range c.pending {
			if entry.state == SaveStateConflicted {
				// 冲突必须显式解决，不允许强制保存绕过
				continue
			}
			if entry.timer != nil {
				entry.timer.Stop()
			}
			c.flush(id, entry.generation)
		}
	})
}

// SetOnline 由平台的连接状态信号驱动。
// 重新上线时自动重试所有排队中的变更。
func (c *Coordinator) SetOnline(online bool) {
	c.do(func() {
		if c.online == online {
			return
		}
		c.online = online
		c.notify(Event{Type: EventConnectivityChanged})

		if !online {
			return
		}

		for id, entry := range c.pending {
			if entry.state == SaveStateConflicted || !entry.retryable {
				continue
			}
			if entry.timer != nil {
				entry.timer.Stop()
			}
			c.flush(id, entry.generation)
		}
	})
}

func (c *Coordinator) enqueueSave(a *domain.Assignment) {
	entry, exists := c.pending[a.ID]
	if exists && entry.state == SaveStateConflicted {
		// 冲突未解决前继续编辑只更新冲突中的本地值，
		// 不再触发写入，避免同一条排班反复产生新冲突
		entry.assignment = a
		c.updateConflictLocalChange(a.ID, a)
		return
	}
	if !exists {
		entry = &pendingMutation{retryable: true}
		c.pending[a.ID] = entry
	}

	entry.op = opSave
	entry.assignment = a
	entry.state = SaveStateProposed
	entry.retryable = true
	c.hasUnsavedChanges = true

	c.scheduleFlush(a.ID, entry)
}

func (c *Coordinator) enqueueDelete(a *domain.Assignment) {
	entry, exists := c.pending[a.ID]
	if exists && entry.state == SaveStateConflicted {
		entry.op = opDelete
		entry.assignment = a
		entry.baseVersion = a.Version
		c.updateConflictLocalChange(a.ID, a)
		return
	}
	if exists && entry.op == opSave && entry.assignment.Version == 0 {
		// 这条排班从未到达过远端，直接取消待写入即可
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(c.pending, a.ID)
		c.hasUnsavedChanges = len(c.pending) > 0
		return
	}
	if !exists {
		entry = &pendingMutation{retryable: true}
		c.pending[a.ID] = entry
	}

	entry.op = opDelete
	entry.assignment = a
	entry.baseVersion = a.Version
	entry.state = SaveStateProposed
	entry.retryable = true
	c.hasUnsavedChanges = true

	c.scheduleFlush(a.ID, entry)
}

// scheduleFlush 重置防抖计时器。被取代的计时器通过代数检查作废，
// 永远不会发出过期的写入。
func (c *Coordinator) scheduleFlush(id string, entry *pendingMutation) {
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.generation++
	generation := entry.generation

	entry.timer = time.AfterFunc(c.debounce, func() {
		select {
		case c.commands <- func() {
			c.flush(id, generation)
		}:
		case <-c.stopped:
			// 会话已经关闭，丢弃这次写入
		}
	})
}

// flush 执行一次真正的远端写入。只会携带最新的本地值。
func (c *Coordinator) flush(id string, generation int) {
	entry, exists := c.pending[id]
	if !exists || entry.generation != generation {
		// 计时器已被更新的变更取代
		return
	}
	if entry.state == SaveStateConflicted {
		return
	}
	if !c.online {
		// 离线时保持排队状态，重新上线时自动重试
		entry.state = SaveStateProposed
		entry.retryable = true
		return
	}

	entry.state = SaveStateSaving
	c.notify(Event{Type: EventStateChanged, AssignmentID: id})

	var err error
	switch entry.op {
	case opSave:
		err = c.store.SaveAssignment(entry.assignment)
	case opDelete:
		err = c.store.RemoveAssignment(id, entry.baseVersion)
	}

	if err == nil {
		c.completeSave(id, entry)
		return
	}

	pErr := classifyError(err)
	switch pErr.Type {
	case domain.PersistenceErrConflict:
		c.raiseWriteConflict(id, entry)
	default:
		entry.state = SaveStateFailed
		entry.retryable = pErr.Retryable
		slog.Error("远端写入失败", "assignmentID", id, "retryable", pErr.Retryable, "error", err)
		c.notify(Event{Type: EventSaveFailed, AssignmentID: id, Message: pErr.Error()})

		if pErr.Retryable {
			// 网络类错误留到下一个防抖周期自动重试
			c.scheduleFlush(id, entry)
		}
		// 不可重试的错误需要用户显式 ForceSave，不做静默重试
	}
}

func (c *Coordinator) completeSave(id string, entry *pendingMutation) {
	if entry.op == opSave {
		// 把远端确认的版本同步回本地状态
		for i, existing := range c.data.Assignments {
			if existing.ID == id {
				c.data.Assignments[i] = entry.assignment
				break
			}
		}
	}

	delete(c.pending, id)
	c.hasUnsavedChanges = len(c.pending) > 0
	c.lastSaved = time.Now()
	c.writeSnapshot()
	c.publishChange(entry)
	c.notify(Event{Type: EventSaveSucceeded, AssignmentID: id})
}

func (c *Coordinator) publishChange(entry *pendingMutation) {
	if c.publisher == nil {
		return
	}

	event := &domain.ChangeEvent{
		SessionID:    c.sessionID,
		Date:         c.date,
		AssignmentID: entry.assignment.ID,
		OccurredAt:   time.Now(),
	}
	switch entry.op {
	case opDelete:
		event.Type = domain.EventAssignmentDeleted
	case opSave:
		event.Assignment = entry.assignment.Clone()
		if entry.assignment.Version <= 1 {
			event.Type = domain.EventAssignmentAdded
		} else {
			event.Type = domain.EventAssignmentUpdated
		}
	}

	if err := c.publisher.PublishChange(event); err != nil {
		slog.Error("变更事件广播失败", "assignmentID", event.AssignmentID, "error", err)
	}
}

func (c *Coordinator) writeSnapshot() {
	if c.cache == nil {
		return
	}

	snapshot := &Snapshot{
		Assignments:  make([]*domain.Assignment, 0, len(c.data.Assignments)),
		SelectedDate: c.date,
		Timestamp:    time.Now(),
	}
	for _, a := range c.data.Assignments {
		snapshot.Assignments = append(snapshot.Assignments, a.Clone())
	}

	if err := c.cache.Save(snapshot); err != nil {
		slog.Warn("本地回退缓存写入失败", "date", c.date, "error", err)
	}
}

/**********************************************
 * 观察者与快照
 **********************************************/

// Subscribe 返回一个状态事件通道。通道缓冲满时事件会被丢弃，
// 观察者应该在收到事件后通过 Snapshot 读取最新状态。
func (c *Coordinator) Subscribe() <-chan Event {
	events := make(chan Event, 64)
	c.do(func() {
		c.observers = append(c.observers, events)
	})
	return events
}

func (c *Coordinator) notify(event Event) {
	for _, observer := range c.observers {
		select {
		case observer <- event:
		default:
			// 观察者消费太慢，丢弃事件，状态仍可通过 Snapshot 获取
		}
	}
}

// Snapshot 返回当前本地状态的深拷贝
func (c *Coordinator) Snapshot() State {
	var state State
	c.do(func() {
		state = State{
			Date:              c.date,
			Assignments:       make([]*domain.Assignment, 0, len(c.data.Assignments)),
			Conflicts:         make([]*domain.AssignmentConflict, 0, len(c.conflictOrder)),
			SaveStates:        map[string]SaveState{},
			Online:            c.online,
			HasUnsavedChanges: c.hasUnsavedChanges,
			LastSaved:         c.lastSaved,
		}
		for _, a := range c.data.Assignments {
			state.Assignments = append(state.Assignments, a.Clone())
		}
		for _, conflictID := range c.conflictOrder {
			if conflict, exists := c.conflicts[conflictID]; exists {
				state.Conflicts = append(state.Conflicts, conflict)
			}
		}
		for id, entry := range c.pending {
			state.SaveStates[id] = entry.state
		}
	})
	return state
}

// PlanningData 返回用于批量校验的领域数据拷贝
func (c *Coordinator) PlanningData() *domain.PlanningData {
	var data *domain.PlanningData
	c.do(func() {
		assignments := make([]*domain.Assignment, 0, len(c.data.Assignments))
		for _, a := range c.data.Assignments {
			assignments = append(assignments, a.Clone())
		}
		data = &domain.PlanningData{
			Date:        c.data.Date,
			Assignments: assignments,
			Stations:    c.data.Stations,
			Shifts:      c.data.Shifts,
			Employees:   c.data.Employees,
			Demands:     c.data.Demands,
			Absences:    c.data.Absences,
		}
	})
	return data
}

/**********************************************
 * 错误分类
 **********************************************/

// classifyError 把远端写入错误分成 network / conflict / unknown 三类。
// network 类会自动重试，conflict 类转化为冲突记录，unknown 类等待手动处理。
func classifyError(err error) *domain.PersistenceError {
	var pErr *domain.PersistenceError
	if errors.As(err, &pErr) {
		return pErr
	}

	if errors.Is(err, repository.ErrVersionMismatch) || errors.Is(err, repository.ErrNotFound) {
		return domain.NewConflictError(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewNetworkError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.NewNetworkError(err)
	}

	return domain.NewUnknownError(err)
}
