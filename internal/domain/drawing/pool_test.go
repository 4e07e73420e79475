package drawing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool_Empty(t *testing.T) {
	p := NewPool(nil)
	_, err := p.Pick()
	require.ErrorIs(t, err, ErrEmptyPool)

	p = NewPool([]Entrant{{UserID: "a", Tickets: 0}, {UserID: "b", Tickets: -3}})
	require.Equal(t, 0, p.Len())
	require.Equal(t, int64(0), p.Total())
	_, err = p.Pick()
	require.ErrorIs(t, err, ErrEmptyPool)
}

func TestPool_PickWith_Boundaries(t *testing.T) {
	p := NewPool([]Entrant{
		{UserID: "userA", Tickets: 5},
		{UserID: "userB", Tickets: 3},
		{UserID: "userC", Tickets: 0},
		{UserID: "userD", Tickets: 2},
	})

	require.Equal(t, 3, p.Len())
	require.Equal(t, int64(10), p.Total())

	want := []string{
		"userA", "userA", "userA", "userA", "userA",
		"userB", "userB", "userB",
		"userD", "userD",
	}

	for value, userID := range want {
		e, err := p.PickWith(func(n int64) int64 {
			require.Equal(t, int64(10), n)
			return int64(value)
		})
		require.NoError(t, err)
		require.Equal(t, userID, e.UserID)
	}
}

func TestPool_SingleEntrant(t *testing.T) {
	p := NewPool([]Entrant{{UserID: "only", Tickets: 1}})
	for i := 0; i < 10; i++ {
		e, err := p.Pick()
		require.NoError(t, err)
		require.Equal(t, "only", e.UserID)
	}
}

// Chi-squared critical value for 1 degree of freedom at p=0.001.
const chiSquared1 = 10.828

func TestPool_Pick_Distribution(t *testing.T) {
	p := NewPool([]Entrant{
		{UserID: "userA", Tickets: 5},
		{UserID: "userB", Tickets: 3},
	})

	const trials = 80000
	observed := map[string]int{}
	for i := 0; i < trials; i++ {
		e, err := p.Pick()
		require.NoError(t, err)
		observed[e.UserID]++
	}

	expected := map[string]float64{
		"userA": trials * 5.0 / 8.0,
		"userB": trials * 3.0 / 8.0,
	}

	chi := 0.0
	for userID, exp := range expected {
		diff := float64(observed[userID]) - exp
		chi += diff * diff / exp
	}

	require.Less(t, chi, chiSquared1)
}

func TestPool_LargeTicketCounts(t *testing.T) {
	p := NewPool([]Entrant{
		{UserID: "whale", Tickets: 1 << 40},
		{UserID: "minnow", Tickets: 1},
	})

	e, err := p.PickWith(func(n int64) int64 { return n - 1 })
	require.NoError(t, err)
	require.Equal(t, "minnow", e.UserID)

	e, err = p.PickWith(func(n int64) int64 { return n - 2 })
	require.NoError(t, err)
	require.Equal(t, "whale", e.UserID)
}
