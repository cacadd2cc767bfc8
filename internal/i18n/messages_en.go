package i18n

// loadEnglishMessages loads all English translations
func loadEnglishMessages() {
	messages[LangEN] = map[string]string{
		// Common
		"app.name":        "FloatChat",
		"app.description": "Streaming chat service with durable conversations",
		"app.version":     "floatchat v%s",

		// Conversations
		"conversation.default_title": "New Conversation",
		"conversation.derived_title": "Conversation %s",

		// API errors
		"error.invalid_request":       "Invalid request body",
		"error.missing_message":       "Request must include a non-empty message",
		"error.conversation_required": "Conversation id is required",
		"error.storage_unavailable":   "Conversation storage is unavailable",
		"error.generation_failed":     "Failed to generate a reply",
		"error.rate_limited":          "Too many requests, slow down",
		"error.internal":              "Internal server error",
		"error.not_found":             "Not found",
		"error.method_not_allowed":    "Method not allowed",
	}
}
