package model

const (
	// MemoryPruneThreshold is the bank length above which a prune runs
	MemoryPruneThreshold = 5

	// MemoryPruneCount is how many oldest items one prune compacts
	MemoryPruneCount = 3

	// MaxReplyDepth bounds bot-to-bot reply chains. Depth 0 is a direct
	// response to a human message; each bot-triggered cycle increments it.
	MaxReplyDepth = 2

	// HistoryWindow is how many recent messages feed responder selection
	HistoryWindow = 4

	// SummaryWindow is how many recent messages feed memory summarization
	SummaryWindow = 5

	// AssistantLimit caps the AI participants per group
	AssistantLimit = 6
)
