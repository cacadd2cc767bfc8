package i18n

// loadChineseMessages loads all Traditional Chinese translations
func loadChineseMessages() {
	messages[LangZhTW] = map[string]string{
		// Common
		"app.name":        "FloatChat",
		"app.description": "支援串流回覆與持久化對話的聊天服務",
		"app.version":     "floatchat v%s",

		// Conversations
		"conversation.default_title": "新對話",
		"conversation.derived_title": "對話 %s",

		// API errors
		"error.invalid_request":       "請求內容格式錯誤",
		"error.missing_message":       "請求必須包含非空白訊息",
		"error.conversation_required": "必須提供對話 ID",
		"error.storage_unavailable":   "對話儲存服務暫時無法使用",
		"error.generation_failed":     "回覆產生失敗",
		"error.rate_limited":          "請求過於頻繁，請稍後再試",
		"error.internal":              "伺服器內部錯誤",
		"error.not_found":             "找不到資源",
		"error.method_not_allowed":    "不支援的請求方法",
	}
}
