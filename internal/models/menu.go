package models

import "time"

// MenuStatus is the publication state of a menu.
type MenuStatus string

const (
	MenuDraft     MenuStatus = "DRAFT"
	MenuPublished MenuStatus = "PUBLISHED"
)

// Menu is the meal plan for one day. Only published menus are visible
// to parents.
type Menu struct {
	ID          string     `db:"id" json:"id"`
	Date        time.Time  `db:"date" json:"date"`
	Starter     *string    `db:"starter" json:"starter,omitempty"`
	MainCourse  string     `db:"main_course" json:"main_course"`
	Dessert     *string    `db:"dessert" json:"dessert,omitempty"`
	Snack       *string    `db:"snack" json:"snack,omitempty"`
	Allergens   *string    `db:"allergens" json:"allergens,omitempty"`
	Status      MenuStatus `db:"status" json:"status"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type CreateMenuRequest struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Starter    *string `json:"starter" validate:"omitempty,max=200"`
	MainCourse string  `json:"main_course" validate:"required,min=1,max=200"`
	Dessert    *string `json:"dessert" validate:"omitempty,max=200"`
	Snack      *string `json:"snack" validate:"omitempty,max=200"`
	Allergens  *string `json:"allergens" validate:"omitempty,max=500"`
}

type UpdateMenuRequest struct {
	Starter    *string `json:"starter" validate:"omitempty,max=200"`
	MainCourse *string `json:"main_course" validate:"omitempty,min=1,max=200"`
	Dessert    *string `json:"dessert" validate:"omitempty,max=200"`
	Snack      *string `json:"snack" validate:"omitempty,max=200"`
	Allergens  *string `json:"allergens" validate:"omitempty,max=500"`
}
