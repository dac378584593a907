package publisher

// Publisher represents a service for publishing search results
type Publisher interface {
	// Publish publishes a message under key to one of the result streams
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
