package agent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmittingSet_AddRemove(t *testing.T) {
	s := NewSubmittingSet()

	assert.True(t, s.Add("id"))
	assert.False(t, s.Add("id"), "an id is never present twice")
	assert.True(t, s.Contains("id"))
	assert.Equal(t, 1, s.Len())

	s.Remove("id")
	assert.False(t, s.Contains("id"))
	assert.Equal(t, 0, s.Len())

	s.Remove("absent")
}

func TestSubmittingSet_SnapshotIsACopy(t *testing.T) {
	s := NewSubmittingSet()
	s.Add("id1")

	snap := s.Snapshot()
	snap[0] = "mutated"

	assert.True(t, s.Contains("id1"))
	assert.False(t, s.Contains("mutated"))
}

func TestSubmittingSet_ConcurrentAccess(t *testing.T) {
	s := NewSubmittingSet()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := string(rune('a' + i%26))
		go func() {
			defer wg.Done()
			s.Add(id)
		}()
		go func() {
			defer wg.Done()
			s.Remove(id)
			s.Contains(id)
			s.Snapshot()
		}()
	}
	wg.Wait()
}

func TestOnDeployAttemptDone_RemovesID(t *testing.T) {
	a := newTestAgent(t, &fakeControlPlane{token: "TEST_TOKEN"})
	a.submitting.Add("id")

	a.onDeployAttemptDone("id")

	assert.Equal(t, 0, a.submitting.Len())
}
