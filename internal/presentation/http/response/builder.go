package response

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/orderproxy/pkg/errorbank"
)

// ErrorPayload is the body written for every failed request.
type ErrorPayload struct {
	Detail string `json:"detail"`
}

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	raw    json.RawMessage
	err    error
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload, rendered as JSON without an envelope.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithRawJSON attaches an already encoded JSON payload, written as is.
func (b *Builder) WithRawJSON(raw json.RawMessage) *Builder {
	b.raw = raw
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	if b.raw != nil {
		return b.ctx.JSONBlob(b.status, b.raw)
	}
	return b.ctx.JSON(b.status, b.data)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	return b.ctx.JSON(status, ErrorPayload{Detail: appErr.Message()})
}
