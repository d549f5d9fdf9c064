package store

import "time"

// Image 一次生成的图像记录
type Image struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string    `gorm:"index" json:"userId"`
	Prompt          string    `gorm:"type:text;not null" json:"prompt"`
	OptimizedPrompt string    `gorm:"type:text" json:"optimizedPrompt"`
	ImageURLs       []string  `gorm:"serializer:json;type:jsonb" json:"imageUrls"`
	BoardName       string    `gorm:"default:New Board" json:"boardName"`
	AspectRatio     string    `json:"aspectRatio"`
	Width           int       `gorm:"default:1024" json:"width"`
	Height          int       `gorm:"default:1024" json:"height"`
	Format          string    `gorm:"default:png" json:"format"`
	TaskID          string    `gorm:"index" json:"taskId"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
