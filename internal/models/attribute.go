package models

import "time"

// Attribute is a variation dimension such as "Color" or "Size".
type Attribute struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	Values []AttributeValue `db:"-" json:"values"`
}

// AttributeValue is one enumerated value of an attribute, ordered by Position.
type AttributeValue struct {
	ID          int       `db:"id" json:"id"`
	AttributeID int       `db:"attribute_id" json:"attributeId"`
	Value       string    `db:"value" json:"value"`
	Slug        string    `db:"slug" json:"slug"`
	Position    int       `db:"position" json:"position"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
