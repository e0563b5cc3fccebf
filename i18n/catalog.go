package i18n

// Keys used by the server itself.
const (
	KeyNewDocument  = "document.new"
	KeyDraftTitle   = "draft.title"
	KeyErrorTitle   = "draft.error.title"
	KeyErrorContent = "draft.error.content"
)

var catalog = map[Language]map[string]string{
	English: {
		"app.name":           "Lumina",
		"initial.heading":    "What are we writing today?",
		"initial.prompt":     "Describe your idea, paste notes, or attach files...",
		"initial.attach":     "Attach files",
		"initial.start":      "Start writing",
		"initial.generating": "Drafting your document...",
		"editor.placeholder": "Start writing...",
		"editor.processing":  "Thinking...",
		"menu.rewrite":       "Rewrite",
		"menu.shorten":       "Shorten",
		"menu.expand":        "Expand",
		"menu.tone":          "Change tone",
		"menu.grammar":       "Fix grammar",
		"menu.translateEn":   "To English",
		"menu.translateRu":   "To Russian",
		"menu.custom":        "Ask AI...",
		"suggestions.title":  "Suggestions",
		"suggestions.apply":  "Apply",
		"suggestions.ignore": "Dismiss",
		"nav.newDocument":    "New document",
		"nav.close":          "Close",
		"nav.zen":            "Zen mode",
		"footer.words":       "Words",
		"footer.chars":       "Characters",
		KeyNewDocument:       "New Document",
		KeyDraftTitle:        "Lumina Draft",
		KeyErrorTitle:        "Error Draft",
		KeyErrorContent:      "I encountered an issue generating your draft. Please try writing below or ask me to rewrite a specific prompt.",
	},
	Russian: {
		"app.name":           "Lumina",
		"initial.heading":    "О чём будем писать сегодня?",
		"initial.prompt":     "Опишите идею, вставьте заметки или прикрепите файлы...",
		"initial.attach":     "Прикрепить файлы",
		"initial.start":      "Начать писать",
		"initial.generating": "Создаём черновик...",
		"editor.placeholder": "Начните писать...",
		"editor.processing":  "Думаю...",
		"menu.rewrite":       "Переписать",
		"menu.shorten":       "Сократить",
		"menu.expand":        "Расширить",
		"menu.tone":          "Сменить тон",
		"menu.grammar":       "Исправить грамматику",
		"menu.translateEn":   "На английский",
		"menu.translateRu":   "На русский",
		"menu.custom":        "Спросить ИИ...",
		"suggestions.title":  "Предложения",
		"suggestions.apply":  "Применить",
		"suggestions.ignore": "Отклонить",
		"nav.newDocument":    "Новый документ",
		"nav.close":          "Закрыть",
		"nav.zen":            "Режим дзен",
		"footer.words":       "Слова",
		"footer.chars":       "Символы",
		KeyNewDocument:       "Новый документ",
		KeyErrorTitle:        "Ошибка черновика",
		KeyErrorContent:      "Произошла ошибка при создании черновика. Пожалуйста, начните писать ниже или попросите меня изменить конкретный запрос.",
	},
}
