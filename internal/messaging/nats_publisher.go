package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/types"
)

const DefaultSubject = "jobs.linkedin"

// Publisher is a Sink that publishes every record as JSON. The job id goes in
// the Nats-Msg-Id header so a JetStream stream on the subject drops repeats.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

var _ types.Sink = (*Publisher)(nil)

func NewPublisher(url, subject string, timeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := []nats.Option{
		nats.Name("jobscout-scraper"),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, apperrors.Sink("connecting to NATS", err)
	}

	return &Publisher{conn: conn, subject: subject, logger: logger.Named("nats")}, nil
}

func newMsg(subject string, rec domain.JobRecord) (*nats.Msg, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, rec.JobID)
	return msg, nil
}

func (p *Publisher) Put(_ context.Context, rec domain.JobRecord) error {
	msg, err := newMsg(p.subject, rec)
	if err != nil {
		return apperrors.Sink("marshaling job record", err)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error("failed to publish job record",
			zap.String("job_id", rec.JobID),
			zap.Error(err))
		return apperrors.Sink("publishing to NATS", err)
	}

	p.logger.Debug("published job record",
		zap.String("job_id", rec.JobID),
		zap.String("subject", p.subject))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
