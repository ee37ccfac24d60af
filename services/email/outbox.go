package emailsvc

import (
	"github.com/hazard-Tom2004/TESA-API/core"
)

// outbox decouples email delivery from the request path: messages are queued
// and drained by a single worker through the wrapped service. A full queue
// drops the message with a log line rather than blocking the caller; email
// delivery never fails the operation that triggered it.
type outbox struct {
	svc   core.EmailService
	log   core.Logger
	queue chan *core.EmailMessage
}

var _ core.EmailService = (*outbox)(nil)

const queueSize = 256

func NewOutbox(svc core.EmailService, log core.Logger) core.EmailService {
	ob := &outbox{
		svc:   svc,
		log:   log,
		queue: make(chan *core.EmailMessage, queueSize),
	}
	go ob.run()
	return ob
}

func (ob *outbox) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		select {
		case ob.queue <- msg:
		default:
			ob.log.Error("email outbox full, dropping message", map[string]interface{}{"subject": msg.Subject})
		}
	}
}

func (ob *outbox) run() {
	for msg := range ob.queue {
		ob.svc.SendMessages(msg)
	}
}
