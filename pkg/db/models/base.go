package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Every table keys on a uuid assigned here, so inserts don't depend on gen_random_uuid().

func (t *Trip) BeforeCreate(*gorm.DB) error              { ensureID(&t.ID); return nil }
func (m *TripMember) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (r *PermissionRequest) BeforeCreate(*gorm.DB) error { ensureID(&r.ID); return nil }
func (s *ItinerarySection) BeforeCreate(*gorm.DB) error  { ensureID(&s.ID); return nil }
func (i *ItineraryItem) BeforeCreate(*gorm.DB) error     { ensureID(&i.ID); return nil }
func (v *Vote) BeforeCreate(*gorm.DB) error              { ensureID(&v.ID); return nil }
func (p *Poll) BeforeCreate(*gorm.DB) error              { ensureID(&p.ID); return nil }
func (o *PollOption) BeforeCreate(*gorm.DB) error        { ensureID(&o.ID); return nil }
func (v *PollVote) BeforeCreate(*gorm.DB) error          { ensureID(&v.ID); return nil }
func (r *FriendRequest) BeforeCreate(*gorm.DB) error     { ensureID(&r.ID); return nil }
func (f *Friendship) BeforeCreate(*gorm.DB) error        { ensureID(&f.ID); return nil }
func (c *Comment) BeforeCreate(*gorm.DB) error           { ensureID(&c.ID); return nil }
func (r *CommentReaction) BeforeCreate(*gorm.DB) error   { ensureID(&r.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error      { ensureID(&n.ID); return nil }
func (i *UserIntegration) BeforeCreate(*gorm.DB) error   { ensureID(&i.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error       { ensureID(&e.ID); return nil }
