package history

import "sync"

// Role автора реплики диалога.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn — одна реплика диалога.
type Turn struct {
	Role    Role
	Content string
}

// Store — потокобезопасное хранилище ограниченных историй диалогов,
// по одной истории на пользователя. При переполнении удаляются самые старые реплики.
type Store struct {
	max   int
	mu    sync.RWMutex
	users map[int64]*conversation
}

type conversation struct {
	seq   sync.Mutex // сериализация обработки реплик одного пользователя
	mu    sync.Mutex // защита turns
	turns []Turn
}

func New(maxMessages int) *Store {
	if maxMessages <= 0 {
		maxMessages = 10
	}
	return &Store{max: maxMessages, users: make(map[int64]*conversation)}
}

// entry возвращает историю пользователя, создавая её при первом обращении.
func (s *Store) entry(userID int64) *conversation {
	s.mu.RLock()
	c, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.users[userID]; ok {
		return c
	}
	c = &conversation{turns: make([]Turn, 0, s.max)}
	s.users[userID] = c
	return c
}

// Append добавляет реплику в историю пользователя и обрезает её до последних max записей.
func (s *Store) Append(userID int64, role Role, content string) {
	c := s.entry(userID)
	c.mu.Lock()
	c.turns = append(c.turns, Turn{Role: role, Content: content})
	if len(c.turns) > s.max {
		// оставить последние max элементов
		c.turns = c.turns[len(c.turns)-s.max:]
	}
	c.mu.Unlock()
}

// Get возвращает копию истории пользователя в хронологическом порядке.
// Для неизвестного пользователя — пустой срез.
func (s *Store) Get(userID int64) []Turn {
	s.mu.RLock()
	c, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	c.mu.Lock()
	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)
	c.mu.Unlock()
	return turns
}

// Clear очищает историю пользователя. Идемпотентна.
func (s *Store) Clear(userID int64) {
	s.mu.RLock()
	c, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	c.mu.Lock()
	c.turns = c.turns[:0]
	c.mu.Unlock()
}

// Serialize захватывает пользовательскую блокировку на время обработки одной реплики:
// конкурентные реплики одного пользователя обрабатываются по очереди,
// разные пользователи — полностью параллельно.
func (s *Store) Serialize(userID int64) (release func()) {
	c := s.entry(userID)
	c.seq.Lock()
	return c.seq.Unlock
}
