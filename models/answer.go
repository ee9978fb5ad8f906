package models

// Answer is a reply to a question. QuestionID is indexed for listing and is
// not checked against existing questions.
type Answer struct {
	AnswerID   string `gorm:"primaryKey;size:255" json:"answerId"`
	QuestionID string `gorm:"size:255;index:idx_answers_question_id" json:"questionId"`
	UserID     string `gorm:"type:text" json:"userId"`
	Body       string `gorm:"type:text" json:"body"`
	CreatedAt  string `gorm:"size:32" json:"createdAt"`
	VoteCount  int64  `gorm:"not null" json:"voteCount"`
}

// RecordKey returns the primary key.
func (a *Answer) RecordKey() string { return a.AnswerID }
