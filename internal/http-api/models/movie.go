package models

const PlaceholderReview = "None"

// Movie is one tracked film. Ranking is derived from Rating on every list read.
type Movie struct {
	ID          int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string  `json:"title" gorm:"size:250;not null;uniqueIndex"`
	Year        int     `json:"year" gorm:"not null"`
	Description string  `json:"description" gorm:"size:500;not null"`
	Rating      float64 `json:"rating" gorm:"not null;default:0;check:rating >= 0 AND rating <= 10"`
	Ranking     int     `json:"ranking" gorm:"not null;default:0"`
	Review      string  `json:"review" gorm:"size:250;not null"`
	ImgURL      string  `json:"img_url" gorm:"column:img_url;size:250;not null"`
}

func (Movie) TableName() string {
	return "movies"
}
