package search

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentsBoundedMostRecentFirst(t *testing.T) {
	r := NewRecents(0)
	for i := 1; i <= 7; i++ {
		r.Add(fmt.Sprintf("q%d", i))
	}
	assert.Equal(t, []string{"q7", "q6", "q5", "q4", "q3"}, r.List())
}

func TestRecentsDeduplicatesIgnoringCase(t *testing.T) {
	r := NewRecents(5)
	r.Add("kinindo")
	r.Add("Gitega")
	r.Add("Ligne A")
	r.Add("KININDO")

	assert.Equal(t, []string{"KININDO", "Ligne A", "Gitega"}, r.List())
}

func TestRecentsIgnoresBlank(t *testing.T) {
	r := NewRecents(5)
	r.Add("  ")
	r.Add(" rohero ")
	assert.Equal(t, []string{"rohero"}, r.List())

	r.Clear()
	assert.Empty(t, r.List())
}

func TestRecentsListIsACopy(t *testing.T) {
	r := NewRecents(5)
	r.Add("a")
	list := r.List()
	list[0] = "mutated"
	assert.Equal(t, []string{"a"}, r.List())
}

func TestRecentsConcurrentUse(t *testing.T) {
	r := NewRecents(5)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Add(fmt.Sprintf("q%d", i%10))
			_ = r.List()
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.List(), 5)
}
