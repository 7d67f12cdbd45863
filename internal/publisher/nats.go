package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const natsSink = "nats"

// NATSPublisher publishes groups on "groups.<objectID>.<odID>" and positions
// on "positions.<objectID>.<odID>".
type NATSPublisher struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     PublisherMetrics
	log         logrus.FieldLogger
}

func NewNATSPublisher(url string, logSubjects bool, m PublisherMetrics, log logrus.FieldLogger) (*NATSPublisher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	nc, err := nats.Connect(url,
		nats.Name("trajectory-builder"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.SetConnected(false)
			}
			log.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.SetConnected(true)
	}
	return &NATSPublisher{nc: nc, logSubjects: logSubjects, metrics: m, log: log}, nil
}

func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc.Close()
	return err
}

func (p *NATSPublisher) PublishGroup(ctx context.Context, msg GroupMessage) error {
	return p.publish(ctx, "groups."+Subject(msg.ObjectID, msg.ODID), msg)
}

func (p *NATSPublisher) PublishPosition(ctx context.Context, msg PositionMessage) error {
	return p.publish(ctx, "positions."+Subject(msg.ObjectID, msg.ODID), msg)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.log.WithField("subject", subject).Debug("nats publish")
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	observe(p.metrics, natsSink, start, err)
	return err
}

func observe(m PublisherMetrics, sink string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.PublishObserve(time.Since(start))
	if err != nil {
		m.PublishErrInc(sink)
	} else {
		m.PublishedInc(sink)
	}
}
