package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/clovigo/internal/notification/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultAPIKeyHeader = "apikey"
	maxErrorBody        = 512
)

type GatewayConfig struct {
	URL          string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
}

// Gateway posts form-encoded messages to an HTTP SMS provider:
// mobile, senderid, msg and msgType=text, authenticated by an API key header.
type Gateway struct {
	cfg    GatewayConfig
	client *http.Client
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func NewGateway(cfg GatewayConfig, clk clock.Clocker, ins instrument.Instrumentation) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = defaultAPIKeyHeader
	}

	return &Gateway{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		clock: clk,
		ins:   ins,
	}
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

func (g *Gateway) Send(ctx context.Context, msg entity.SMS) (delivery entity.Delivery, err error) {
	ctx, span := g.ins.Tracer("notification.outbound.sms").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if strings.TrimSpace(g.cfg.URL) == "" {
		return entity.Delivery{}, entity.ErrGatewayNotReady
	}

	form := url.Values{}
	form.Set("mobile", msg.To)
	form.Set("senderid", msg.Sender)
	form.Set("msg", msg.Body)
	form.Set("msgType", "text")
	form.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return entity.Delivery{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set(g.cfg.APIKeyHeader, g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return entity.Delivery{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return entity.Delivery{}, fmt.Errorf("%w: status %d: %s",
			entity.ErrGatewayRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out gatewayResponse
	// providers without a JSON body still count as accepted
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&out)
	if out.Status == "" {
		out.Status = "accepted"
	}

	return entity.Delivery{MessageID: out.MessageID, Status: out.Status, SentAt: g.clock.Now()}, nil
}
