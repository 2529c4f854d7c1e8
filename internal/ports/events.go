package ports

const (
	TopicRunCompleted = "run.completed"
	TopicRunFailed    = "run.failed"
	TopicFeedUpdated  = "feed.updated"
)

type EventBus interface {
	Publish(topic string, payload []byte)
	// Subscribe sans topics reçoit tout.
	Subscribe(topics ...string) (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}
