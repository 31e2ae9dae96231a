package model

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay:
		return true
	}
	return false
}

// AutoGradable reports whether answers of this type are scored without a grader.
func (t QuestionType) AutoGradable() bool {
	switch t {
	case MultipleChoice, TrueFalse:
		return true
	case ShortAnswer, Essay:
		return false
	}
	return false
}

// swagger:model Question
type Question struct {
	BaseModel
	AssessmentID uint             `gorm:"index;not null" json:"assessment_id"`
	QuestionText string           `gorm:"type:text;not null" json:"question_text"`
	QuestionType QuestionType     `gorm:"size:30;not null" json:"question_type"`
	Points       int              `gorm:"not null;default:1" json:"points"`
	OrderIndex   int              `gorm:"default:0" json:"order_index"`
	MediaURL     *string          `gorm:"size:512" json:"media_url"`
	AnswerKey    *string          `gorm:"type:text" json:"answer_key,omitempty"`
	WordLimit    *int             `json:"word_limit,omitempty"`
	Options      []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Option returns the option with the given id if it belongs to q.
func (q *Question) Option(id uint) (*QuestionOption, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// swagger:model QuestionOption
type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	OptionText string `gorm:"type:text;not null" json:"option_text"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct"`
	OrderIndex int    `gorm:"default:0" json:"order_index"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}
