package domain

import "time"

// Category is the closed classification taxonomy. The classifier assigns
// exactly one per message; storage maps each to a destination.
type Category string

const (
	CategoryFilm     Category = "film"
	CategoryPassword Category = "password"
	CategoryTask     Category = "task"
	CategoryNote     Category = "note"
	CategoryLink     Category = "link"
	CategoryAudio    Category = "audio"
	CategoryUnknown  Category = "unknown"
)

// Categories lists every valid category, in no particular order.
func Categories() []Category {
	return []Category{
		CategoryFilm,
		CategoryPassword,
		CategoryTask,
		CategoryNote,
		CategoryLink,
		CategoryAudio,
		CategoryUnknown,
	}
}

// ClassifiedMessage is the projection handed to storage: the original
// content, its assigned category, any category-specific extracted data
// (the first URL for links), and when classification happened. ProcessedAt
// records when the item was filed, which is deliberately distinct from the
// message's own send timestamp.
type ClassifiedMessage struct {
	OriginalContent string
	Category        Category
	ExtractedData   string
	ProcessedAt     time.Time
	SenderID        string
}
