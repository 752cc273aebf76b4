package messaging

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

type nsqMessage struct {
	topic     string
	msg       *nsq.Message
	env       nsqEnvelope
	responded atomic.Bool
}

// newNSQMessage unwraps the envelope written by NSQ.Publish. Bodies that are
// not envelopes (published by other producers) are passed through as-is.
func newNSQMessage(topic string, msg *nsq.Message) *nsqMessage {
	m := &nsqMessage{topic: topic, msg: msg}
	if err := json.Unmarshal(msg.Body, &m.env); err != nil || m.env.Body == nil {
		m.env = nsqEnvelope{Body: msg.Body}
	}
	return m
}

func (m *nsqMessage) Body() []byte { return m.env.Body }

func (m *nsqMessage) Headers() []Header {
	headers := make([]Header, 0, len(m.env.Headers))
	for k, v := range m.env.Headers {
		headers = append(headers, Header{Key: k, Value: []byte(v)})
	}
	return headers
}

func (m *nsqMessage) ID() string           { return string(m.msg.ID[:]) }
func (m *nsqMessage) Topic() string        { return m.topic }
func (m *nsqMessage) Timestamp() time.Time { return time.Unix(0, m.msg.Timestamp) }

func (m *nsqMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.responded.Swap(true) {
		m.msg.Finish()
	}
	return nil
}

func (m *nsqMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.responded.Swap(true) {
		m.msg.Requeue(-1)
	}
	return nil
}
