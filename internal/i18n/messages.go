package i18n

var zh = map[Key]string{
	SourceLabel:       "来源",
	CLIInputPrompt:    "请输入您的问题（直接回车退出）：",
	CLIAugmentedQuery: "优化后的查询: %s",
	CLIAnswerLabel:    "回答:",
	AugmentPromptHistory: "你是一个专业的搜索助手。请根据对话历史，将用户的最新问题重写为一个独立、清晰的搜索查询。\n" +
		"如果问题中包含代词（如“它”、“这个”），请根据历史替换为具体的名词。\n" +
		"如果问题已经很清晰，则保持原样。\n" +
		"只返回重写后的查询，不要有任何解释。\n\n" +
		"对话历史：\n%s\n\n" +
		"用户问题：%s",
	AugmentPromptNoHistory: "你是一个专业的搜索助手。请优化以下用户问题，使其更适合在 Apache Doris 文档库中进行向量检索。\n" +
		"可以补充相关的关键词，但不要改变原意。\n" +
		"只返回优化后的查询，不要有任何解释。\n\n" +
		"用户问题：%s",
	ServiceOriginalAugmented: "原始问题: %s -> 优化后: %s",
	ChatPromptTemplate: "你是一个专业的 Apache Doris 中文文档助手，请根据给定的“检索上下文”来回答用户问题。\n\n" +
		"【对话历史】\n{history}\n\n" +
		"【检索上下文】\n{context}\n\n" +
		"【要求】\n" +
		"- 优先使用检索到的内容回答。\n" +
		"- 如果文档中没有相关信息，请明确说明“基于当前文档未找到相关说明”，不要胡编。\n" +
		"- 回答使用简体中文，尽可能简洁，但在技术细节上要准确。\n\n" +
		"【用户问题】\n{question}",
	HTMLLang:        "zh-CN",
	UIPlaceholder:   "请输入你的问题，比如：Doris 如何配置向量索引？",
	UISend:          "发送",
	UIThinking:      "思考中...",
	UIErrorPrefix:   "服务错误: ",
	UIRequestFailed: "请求失败，请检查后端服务是否启动。",
	UISourceRef:     "引用文档: ",
}

var en = map[Key]string{
	SourceLabel:       "Source",
	CLIInputPrompt:    "Your question (input empty to quit): ",
	CLIAugmentedQuery: "Augmented Query: %s",
	CLIAnswerLabel:    "Answer:",
	AugmentPromptHistory: "You are a professional search assistant. Please rewrite the user's latest question into an independent, clear search query based on the conversation history.\n" +
		"If the question contains pronouns (e.g., 'it', 'this'), please replace them with specific nouns based on the history.\n" +
		"If the question is already clear, keep it as is.\n" +
		"Return only the rewritten query, without any explanation.\n\n" +
		"Conversation History:\n%s\n\n" +
		"User Question: %s",
	AugmentPromptNoHistory: "You are a professional search assistant. Please optimize the following user question to make it more suitable for vector retrieval in the Apache Doris documentation.\n" +
		"You can add relevant keywords, but do not change the original meaning.\n" +
		"Return only the optimized query, without any explanation.\n\n" +
		"User Question: %s",
	ServiceOriginalAugmented: "Original: %s -> Augmented: %s",
	ChatPromptTemplate: "You are a professional Apache Doris documentation assistant. Please answer the user's question based on the provided 'Retrieved Context'.\n\n" +
		"【Conversation History】\n{history}\n\n" +
		"【Retrieved Context】\n{context}\n\n" +
		"【Requirements】\n" +
		"- Prioritize using the retrieved content to answer.\n" +
		"- If there is no relevant information in the documents, please explicitly state 'No relevant information found based on current documents', do not make things up.\n" +
		"- Answer in English, be concise, but accurate in technical details.\n\n" +
		"【User Question】\n{question}",
	HTMLLang:        "en",
	UIPlaceholder:   "Enter your question, e.g., How to configure vector index in Doris?",
	UISend:          "Send",
	UIThinking:      "Thinking...",
	UIErrorPrefix:   "Service Error: ",
	UIRequestFailed: "Request failed, please check if the backend service is running.",
	UISourceRef:     "References: ",
}
