package models

// CategoryOther is the category assigned when a submission omits one.
const CategoryOther = "Other"

// DefaultCategories is the built-in category set.
var DefaultCategories = []string{
	"Food",
	"Coffee",
	"Groceries",
	"Shopping",
	"Travel",
	"Transportation",
	"Entertainment",
	"Housing",
	"Utilities",
	"Health",
	"Education",
	"Gifts",
	CategoryOther,
}
