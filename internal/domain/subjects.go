package domain

// DefaultSubject describes one of the subjects seeded for new users.
type DefaultSubject struct {
	Name  string
	Color string
	Icon  string
}

// IconoirSubjectIcons maps default subject names to their Iconoir icon.
// DefaultSubjects below must stay consistent with this mapping.
var IconoirSubjectIcons = map[string]string{
	"Mathematics": "calculator",
	"Science":     "flask",
	"History":     "bookmark-book",
	"Language":    "chat-bubble",
	"Programming": "code",
	"Arts":        "palette",
	"Other":       "book-stack",
}

var DefaultSubjects = []DefaultSubject{
	{Name: "Mathematics", Color: "#6366f1", Icon: IconoirSubjectIcons["Mathematics"]},
	{Name: "Science", Color: "#10b981", Icon: IconoirSubjectIcons["Science"]},
	{Name: "History", Color: "#f59e0b", Icon: IconoirSubjectIcons["History"]},
	{Name: "Language", Color: "#ec4899", Icon: IconoirSubjectIcons["Language"]},
	{Name: "Programming", Color: "#06b6d4", Icon: IconoirSubjectIcons["Programming"]},
	{Name: "Arts", Color: "#8b5cf6", Icon: IconoirSubjectIcons["Arts"]},
	{Name: "Other", Color: "#64748b", Icon: IconoirSubjectIcons["Other"]},
}

const DefaultSubjectIcon = "book-stack"
