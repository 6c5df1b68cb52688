package services

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"tutorfinder/pkg/rabbitmq"
)

// EventPublisher publishes directory change notifications. A nil publisher disables them.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// notify publishes evt after a committed change. Failures only log; the change already happened.
func notify(publisher EventPublisher, evt rabbitmq.DirectoryEvent) {
	if publisher == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).WithField("event", evt.Type).Warn("failed to marshal directory event")
		return
	}
	if err := publisher.Publish(evt.Type, body); err != nil {
		logrus.WithError(err).WithField("event", evt.Type).Warn("failed to publish directory event")
		return
	}
	logrus.WithField("event", evt.Type).Debug("published directory event")
}
