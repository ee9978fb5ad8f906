package models

// Question represents a question posted to the board.
// VoteCount is only ever changed through the store's atomic increment.
type Question struct {
	QuestionID string   `gorm:"primaryKey;size:255" json:"questionId"`
	UserID     string   `gorm:"type:text" json:"userId"`
	Title      string   `gorm:"type:text" json:"title"`
	Body       string   `gorm:"type:text" json:"body"`
	Tags       []string `gorm:"type:text;serializer:json" json:"tags"`
	CreatedAt  string   `gorm:"size:32;index" json:"createdAt"`
	VoteCount  int64    `gorm:"not null" json:"voteCount"`
}

// RecordKey returns the primary key.
func (q *Question) RecordKey() string { return q.QuestionID }

// HasTag reports whether tag is one of the question's tags. Matching is exact.
func (q *Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Normalize replaces a nil tag list so it serializes as [] rather than null.
func (q *Question) Normalize() {
	if q.Tags == nil {
		q.Tags = []string{}
	}
}
