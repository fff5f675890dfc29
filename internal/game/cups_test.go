package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRack(t *testing.T, ids ...string) *CupRack {
	t.Helper()
	cups := make([]Cup, 0, len(ids))
	for i, id := range ids {
		cups = append(cups, Cup{ID: id, Position: Vec3{X: float64(i), Y: 0.76, Z: 1}, Radius: 0.046, Height: 0.12})
	}
	r, err := NewCupRack(cups)
	require.NoError(t, err)
	return r
}

func cupIDs(cups []*Cup) []string {
	ids := make([]string, 0, len(cups))
	for _, c := range cups {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestNewCupRackRejectsBadIDs(t *testing.T) {
	_, err := NewCupRack([]Cup{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)

	_, err = NewCupRack([]Cup{{ID: ""}})
	assert.Error(t, err)

	r, err := NewCupRack(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining())
}

func TestCupRackActiveKeepsOrder(t *testing.T) {
	r := testRack(t, "a", "b", "c", "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, cupIDs(r.Active()))

	b, _ := r.Get("b")
	r.MarkHit(b)
	assert.True(t, b.Hit)
	assert.False(t, r.IsActive("b"))
	assert.Equal(t, 3, r.Remaining())
	assert.Equal(t, []string{"a", "c", "d"}, cupIDs(r.Active()))

	d, _ := r.Get("d")
	r.Remove(d)
	assert.False(t, d.Hit, "removed, not hit")
	assert.Equal(t, []string{"a", "c"}, cupIDs(r.Active()))
	assert.Len(t, r.List(), 4)
}

func TestCupRackReset(t *testing.T) {
	r := testRack(t, "a", "b")
	a, _ := r.Get("a")
	a.Position = Vec3{X: 9, Y: 9, Z: 9}
	r.MarkHit(a)

	r.Reset(a)
	assert.True(t, r.IsActive("a"))
	assert.False(t, a.Hit)
	assert.Equal(t, a.InitialPosition, a.Position)

	b, _ := r.Get("b")
	r.MarkHit(a)
	r.MarkHit(b)
	require.Equal(t, 0, r.Remaining())
	r.ResetAll()
	assert.Equal(t, 2, r.Remaining())
	assert.Equal(t, []string{"a", "b"}, cupIDs(r.Active()))
}

func TestFindOwningTarget(t *testing.T) {
	r := testRack(t, "cup-1", "cup-2")

	c, ok := r.FindOwningTarget(TriggerCollider("cup-2"))
	require.True(t, ok)
	assert.Equal(t, "cup-2", c.ID)

	c, ok = r.FindOwningTarget(BodyCollider("cup-1"))
	require.True(t, ok)
	assert.Equal(t, "cup-1", c.ID)

	_, ok = r.FindOwningTarget("table")
	assert.False(t, ok)

	// Hit cups still resolve; the controller decides what a hit on them means.
	r.MarkHit(c)
	_, ok = r.FindOwningTarget(TriggerCollider("cup-1"))
	assert.True(t, ok)
}
