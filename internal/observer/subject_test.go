package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Subject_Publish_RegistrationOrder(t *testing.T) {
	// given
	var s Subject[int]
	var got []string
	s.Subscribe(func(v int) { got = append(got, "first") })
	s.Subscribe(func(v int) { got = append(got, "second") })
	// when
	s.Publish(1)
	// then
	assert.Equal(t, []string{"first", "second"}, got)
}

func Test_Subject_Unsubscribe(t *testing.T) {
	// given
	var s Subject[int]
	calls := 0
	unsubscribe := s.Subscribe(func(int) { calls++ })
	s.Publish(1)
	// when
	unsubscribe()
	unsubscribe()
	s.Publish(2)
	// then
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Len())
}

func Test_Subject_SubscribeDuringEmission(t *testing.T) {
	// given
	var s Subject[int]
	var late []int
	s.Subscribe(func(v int) {
		if v == 1 {
			s.Subscribe(func(v int) { late = append(late, v) })
		}
	})
	// when
	s.Publish(1)
	s.Publish(2)
	// then
	assert.Equal(t, []int{2}, late, "a listener added mid-emission must not receive that emission")
}

func Test_Subject_UnsubscribeDuringEmission(t *testing.T) {
	// given
	var s Subject[int]
	var seen []int
	var unsubscribe func()
	unsubscribe = s.Subscribe(func(v int) {
		seen = append(seen, v)
		unsubscribe()
	})
	// when
	s.Publish(1)
	s.Publish(2)
	// then
	assert.Equal(t, []int{1}, seen)
}

func Test_Subject_Emitting(t *testing.T) {
	// given
	var s Subject[int]
	var during bool
	s.Subscribe(func(int) { during = s.Emitting() })
	// when
	s.Publish(1)
	// then
	assert.True(t, during)
	assert.False(t, s.Emitting())
}
