package models

import "time"

// Document is one schemaless record of the document store. Data holds a JSON object.
type Document struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Collection string    `gorm:"index:idx_doc_collection_created;size:255;not null" json:"collection"`
	Data       string    `gorm:"type:text;not null" json:"data"`
	CreatedAt  time.Time `gorm:"index:idx_doc_collection_created" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
