package ordinazione

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher delivers one order request to the restaurant.
type Dispatcher interface {
	Send(ctx context.Context, req OrderRequest) (Receipt, error)
}

const maxResponseBody = 1 << 20

// HTTPDispatcher POSTs orders as JSON. It never retries.
type HTTPDispatcher struct {
	client   *http.Client
	endpoint string
}

var _ Dispatcher = (*HTTPDispatcher)(nil)

func NewHTTPDispatcher(client *http.Client, baseURL, path string) *HTTPDispatcher {
	return &HTTPDispatcher{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
	}
}

func (d *HTTPDispatcher) Send(ctx context.Context, order OrderRequest) (Receipt, error) {
	requestID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "HTTPDispatcher.Send", trace.WithAttributes(
		attribute.String("http.request_id", requestID),
		attribute.Int("ordinazione.items", len(order.Items)),
	))
	defer span.End()

	body, err := json.Marshal(order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal order")
		return Receipt{}, fmt.Errorf("encoding order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build request")
		return Receipt{}, newSubmitError(ReasonNetworkFailure, MsgNetworkFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := d.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "order request failed", slog.String("request-id", requestID), slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "order request failed")
		return Receipt{}, newSubmitError(ReasonNetworkFailure, MsgNetworkFailure, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read response")
		return Receipt{}, newSubmitError(ReasonNetworkFailure, MsgNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var rej rejection
		if err := json.Unmarshal(raw, &rej); err != nil {
			slog.WarnContext(ctx, "undecodable order rejection", slog.String("request-id", requestID), slog.Int("status", resp.StatusCode), slog.Any("err", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "undecodable response")
			return Receipt{}, newSubmitError(ReasonNetworkFailure, MsgNetworkFailure, fmt.Errorf("status %d: %w", resp.StatusCode, err))
		}
		message := rej.Error
		if message == "" {
			message = MsgOrderFailed
		}
		span.SetStatus(codes.Error, "order rejected")
		return Receipt{}, newSubmitError(ReasonRemoteRejected, message, fmt.Errorf("status %d", resp.StatusCode))
	}

	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable response")
		return Receipt{}, newSubmitError(ReasonNetworkFailure, MsgNetworkFailure, err)
	}
	if receipt.OrderID == "" {
		err := errors.New("response has no order_id")
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable response")
		return Receipt{}, newSubmitError(ReasonNetworkFailure, MsgNetworkFailure, err)
	}

	span.SetAttributes(attribute.String("ordinazione.order_id", string(receipt.OrderID)))
	return receipt, nil
}
