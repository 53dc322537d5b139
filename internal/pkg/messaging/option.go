package messaging

type consumeOptions struct {
	// group is the Kafka consumer group, the NATS queue group and the NSQ
	// channel: subscribers sharing it split the stream between them.
	group       string
	concurrency int
	// maxAttempts bounds redelivery for drivers that count attempts.
	maxAttempts int
}

// ConsumeOption configures consumer behavior.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1, maxAttempts: 5}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&co)
	}
	if co.concurrency < 1 {
		co.concurrency = 1
	}
	if co.maxAttempts < 1 {
		co.maxAttempts = 1
	}
	return co
}

// WithGroup sets the consumer group name.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithConcurrency sets how many handler goroutines process messages in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithMaxAttempts caps deliveries of one message before it is dropped.
func WithMaxAttempts(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxAttempts = n }
}
