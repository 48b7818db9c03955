package models

import "time"

// Category groups products. Categories may nest through ParentID.
type Category struct {
	ID          int       `db:"id" json:"id"`
	ParentID    *int      `db:"parent_id" json:"parentId,omitempty"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description *string   `db:"description" json:"description,omitempty"`
	SortOrder   int       `db:"sort_order" json:"sortOrder"`
	ImagePath   *string   `db:"image_path" json:"imagePath,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
