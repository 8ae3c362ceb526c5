package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_Append_Bounded(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		appends int
		wantLen int
	}{
		{name: "fewer than max", max: 10, appends: 4, wantLen: 4},
		{name: "exactly max", max: 10, appends: 10, wantLen: 10},
		{name: "overflow evicts oldest", max: 10, appends: 25, wantLen: 10},
		{name: "small window", max: 3, appends: 7, wantLen: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.max)
			for i := 0; i < tt.appends; i++ {
				s.Append(1, RoleUser, fmt.Sprintf("msg-%d", i))
			}
			turns := s.Get(1)
			assert.Len(t, turns, tt.wantLen)
			// должны остаться именно последние wantLen реплик в исходном порядке
			for i, turn := range turns {
				assert.Equal(t, fmt.Sprintf("msg-%d", tt.appends-tt.wantLen+i), turn.Content)
			}
		})
	}
}

func TestStore_Isolation(t *testing.T) {
	s := New(10)
	s.Append(1, RoleUser, "от первого")
	s.Append(2, RoleUser, "от второго")

	assert.Len(t, s.Get(1), 1)
	assert.Len(t, s.Get(2), 1)
	assert.Equal(t, "от первого", s.Get(1)[0].Content)
	assert.Equal(t, "от второго", s.Get(2)[0].Content)
}

func TestStore_Clear(t *testing.T) {
	s := New(10)

	t.Run("unknown user is a no-op", func(t *testing.T) {
		s.Clear(42)
		assert.Empty(t, s.Get(42))
	})

	t.Run("clears existing history", func(t *testing.T) {
		s.Append(1, RoleUser, "a")
		s.Append(1, RoleAssistant, "b")
		s.Clear(1)
		assert.Empty(t, s.Get(1))
	})

	t.Run("idempotent", func(t *testing.T) {
		s.Clear(1)
		s.Clear(1)
		assert.Empty(t, s.Get(1))
	})
}

func TestStore_Get_UnknownUser(t *testing.T) {
	s := New(10)
	assert.Empty(t, s.Get(999))
}

func TestStore_Get_ReturnsCopy(t *testing.T) {
	s := New(10)
	s.Append(1, RoleUser, "оригинал")
	turns := s.Get(1)
	turns[0].Content = "изменено"
	assert.Equal(t, "оригинал", s.Get(1)[0].Content)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(10)
	var wg sync.WaitGroup
	for u := int64(1); u <= 8; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(userID, RoleUser, "x")
				_ = s.Get(userID)
			}
		}(u)
	}
	wg.Wait()
	for u := int64(1); u <= 8; u++ {
		assert.Len(t, s.Get(u), 10)
	}
}

func TestStore_Serialize(t *testing.T) {
	s := New(100)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				release := s.Serialize(1)
				// пара реплик одного обмена не должна перемежаться с чужими
				s.Append(1, RoleUser, fmt.Sprintf("u-%d-%d", g, i))
				s.Append(1, RoleAssistant, fmt.Sprintf("a-%d-%d", g, i))
				release()
			}
		}(g)
	}
	wg.Wait()

	turns := s.Get(1)
	assert.Len(t, turns, 80)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, RoleUser, turns[i].Role)
		assert.Equal(t, RoleAssistant, turns[i+1].Role)
		// ответ относится к той же паре, что и вопрос
		assert.Equal(t, turns[i].Content[2:], turns[i+1].Content[2:])
	}
}
