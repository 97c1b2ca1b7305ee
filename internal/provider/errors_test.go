package provider_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/statusgen/statusgen/internal/provider"
)

func TestTransportError_Message(t *testing.T) {
	withCode := &provider.TransportError{Service: "uptime-kuma", Op: "list monitors", StatusCode: 401}
	assert.Equal(t, "uptime-kuma: list monitors: unexpected status code: 401", withCode.Error())

	cause := errors.New("connection refused")
	noCode := &provider.TransportError{Service: "spaces", Op: "list objects", Err: cause}
	assert.Equal(t, "spaces: list objects: connection refused", noCode.Error())
	assert.ErrorIs(t, noCode, cause)
}

func TestIsTransport_Wrapped(t *testing.T) {
	err := fmt.Errorf("fetching: %w", &provider.TransportError{
		Service: "uptime-kuma",
		Op:      "list heartbeats",
		Err:     provider.ErrCircuitOpen,
	})

	assert.True(t, provider.IsTransport(err))
	assert.False(t, provider.IsParse(err))
	assert.ErrorIs(t, err, provider.ErrCircuitOpen)
}

func TestIsParse(t *testing.T) {
	err := &provider.ParseError{Service: "uptime-kuma", Op: "list monitors", Err: errors.New("unexpected EOF")}

	assert.True(t, provider.IsParse(err))
	assert.False(t, provider.IsTransport(err))
	assert.Contains(t, err.Error(), "decoding response: unexpected EOF")
}

func TestKind(t *testing.T) {
	assert.Equal(t, "transport", provider.Kind(fmt.Errorf("listing monitors: %w", &provider.TransportError{StatusCode: 502})))
	assert.Equal(t, "parse", provider.Kind(&provider.ParseError{Err: errors.New("bad json")}))
	assert.Equal(t, "other", provider.Kind(errors.New("boom")))
}
