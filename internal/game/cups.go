package game

import "fmt"

// Cup is a hittable target on the table.
type Cup struct {
	ID              string  `json:"id"`
	Position        Vec3    `json:"position"` // base centre
	InitialPosition Vec3    `json:"-"`
	Radius          float64 `json:"radius"`
	Height          float64 `json:"height"`
	Hit             bool    `json:"hit"`
}

// BodyCollider is the collider ID of the cup's wall and rim.
func BodyCollider(cupID string) string { return cupID + "/body" }

// TriggerCollider is the collider ID of the beer surface inside the cup.
func TriggerCollider(cupID string) string { return cupID + "/beer" }

// CupRack owns the set of cups for a table. It is not safe for concurrent
// use; the owning session serialises access.
type CupRack struct {
	cups       []*Cup
	byID       map[string]*Cup
	byCollider map[string]*Cup
	active     map[string]struct{}
}

// NewCupRack builds a rack from cup definitions. Cup IDs must be unique.
func NewCupRack(cups []Cup) (*CupRack, error) {
	r := &CupRack{
		byID:       make(map[string]*Cup, len(cups)),
		byCollider: make(map[string]*Cup, len(cups)*2),
		active:     make(map[string]struct{}, len(cups)),
	}
	for i := range cups {
		c := cups[i]
		if c.ID == "" {
			return nil, fmt.Errorf("cup %d has no id", i)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate cup id %q", c.ID)
		}
		c.InitialPosition = c.Position
		c.Hit = false
		cup := &c
		r.cups = append(r.cups, cup)
		r.byID[c.ID] = cup
		r.byCollider[BodyCollider(c.ID)] = cup
		r.byCollider[TriggerCollider(c.ID)] = cup
		r.active[c.ID] = struct{}{}
	}
	return r, nil
}

// List returns every cup in rack order, hit or not.
func (r *CupRack) List() []*Cup {
	out := make([]*Cup, len(r.cups))
	copy(out, r.cups)
	return out
}

// Active returns the cups still in play, in rack order.
func (r *CupRack) Active() []*Cup {
	out := make([]*Cup, 0, len(r.active))
	for _, c := range r.cups {
		if _, ok := r.active[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Remaining is the number of cups still in play.
func (r *CupRack) Remaining() int { return len(r.active) }

// IsActive reports whether the cup is still in play.
func (r *CupRack) IsActive(id string) bool {
	_, ok := r.active[id]
	return ok
}

// Get looks a cup up by ID.
func (r *CupRack) Get(id string) (*Cup, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// MarkHit flags the cup as hit and takes it out of play.
func (r *CupRack) MarkHit(c *Cup) {
	if c == nil {
		return
	}
	c.Hit = true
	r.Remove(c)
}

// Remove takes the cup out of play without flagging it.
func (r *CupRack) Remove(c *Cup) {
	if c == nil {
		return
	}
	delete(r.active, c.ID)
}

// Reset puts a single cup back at its initial position and in play.
func (r *CupRack) Reset(c *Cup) {
	if c == nil {
		return
	}
	if _, ok := r.byID[c.ID]; !ok {
		return
	}
	c.Position = c.InitialPosition
	c.Hit = false
	r.active[c.ID] = struct{}{}
}

// ResetAll restores every cup.
func (r *CupRack) ResetAll() {
	for _, c := range r.cups {
		r.Reset(c)
	}
}

// FindOwningTarget resolves a collider ID to the cup it belongs to.
func (r *CupRack) FindOwningTarget(collider string) (*Cup, bool) {
	c, ok := r.byCollider[collider]
	return c, ok
}
