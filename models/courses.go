package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Title       string   `json:"title"`
	ShortDesc   string   `json:"short_desc"`
	Description string   `json:"description"`
	Topic       string   `json:"topic"`
	AuthorID    uint     `json:"author_id"`
	LogoURL     string   `json:"logo_url"`
	PriceCents  int64    `json:"price_cents" gorm:"default:0"` // 0 means free access
	Published   bool     `json:"published" gorm:"default:false"`
	Lessons     []Lesson `json:"lessons"`
}

type Lesson struct {
	gorm.Model
	CourseID      uint   `json:"course_id" gorm:"index"`
	Title         string `json:"title"`
	VideoURL      string `json:"video_url"`
	DurationMs    int64  `json:"duration_ms"` // canonical video length
	SequenceOrder int    `json:"sequence_order"`
}

// Free reports whether enrolling requires no payment.
func (c *Course) Free() bool {
	return c.PriceCents == 0
}
