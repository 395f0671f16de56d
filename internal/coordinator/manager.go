package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// EventBus 是协调器会话所需的完整事件通道：对外广播和订阅远端变更
type EventBus interface {
	EventPublisher
	SubscribeChanges(ctx context.Context) (<-chan *domain.ChangeEvent, error)
}

// Session 是一个规划者打开的编辑会话，拥有自己独立的协调器实例
type Session struct {
	ID           string
	Date         string
	PlannerEmail string
	Coordinator  *Coordinator

	cancel context.CancelFunc
}

// Manager 管理所有在线会话。会话内部串行，会话之间并发，
// 因此注册表本身需要加锁。
type Manager struct {
	cfg   *config.Config
	store RemoteStore
	bus   EventBus
	cache FallbackCache

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cfg *config.Config, store RemoteStore, bus EventBus, cache FallbackCache) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		bus:      bus,
		cache:    cache,
		sessions: map[string]*Session{},
	}
}

// Open 为某个规划日期打开一个新会话并完成初始加载
func (m *Manager) Open(date string, plannerEmail string) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())

	sessionID := uuid.NewString()

	var remoteEvents <-chan *domain.ChangeEvent
	if m.bus != nil {
		events, err := m.bus.SubscribeChanges(ctx)
		if err != nil {
			cancel()
			return nil, err
		}
		remoteEvents = events
	}

	var publisher EventPublisher
	if m.bus != nil {
		publisher = m.bus
	}

	coord := New(Options{
		SessionID:        sessionID,
		PlannerEmail:     plannerEmail,
		Date:             date,
		DebounceInterval: time.Duration(m.cfg.Coordinator.DebounceInterval) * time.Millisecond,
		SnapshotMaxAge:   time.Duration(m.cfg.Coordinator.FallbackCacheTTL) * time.Second,
		Store:            m.store,
		Publisher:        publisher,
		Cache:            m.cache,
		RemoteEvents:     remoteEvents,
	})

	go coord.Run(ctx)

	if err := coord.Load(); err != nil {
		cancel()
		return nil, err
	}

	session := &Session{
		ID:           sessionID,
		Date:         date,
		PlannerEmail: plannerEmail,
		Coordinator:  coord,
		cancel:       cancel,
	}

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()

	return session, nil
}

func (m *Manager) Get(sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	session, exists := m.sessions[sessionID]
	if exists {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if exists {
		session.cancel()
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	for _, session := range sessions {
		session.cancel()
	}
}
