package domain

// MessageEvent is one observed chat message, produced by a watcher and
// consumed by the aggregator.
type MessageEvent struct {
	GroupName  string `json:"group_name"`
	TopicName  string `json:"topic_name,omitempty"`
	SenderName string `json:"sender_name"`
	Text       string `json:"message_text"`
	UserID     string `json:"user_id"`
	Overlap    bool   `json:"overlap"`
}

// ConversationKey selects which sliding window the event belongs to:
// `groupName` alone, or `groupName:topicName` when the watch is topic-scoped.
func (e MessageEvent) ConversationKey() string {
	if e.TopicName == "" {
		return e.GroupName
	}
	return e.GroupName + ":" + e.TopicName
}
