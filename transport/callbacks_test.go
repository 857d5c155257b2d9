package transport

import (
	"reflect"
	"testing"

	"github.com/revived-midas/rust-soket-io/parser"
	"github.com/stretchr/testify/assert"
)

func TestCallbacks(t *testing.T) {
	callbacks := Callbacks{}
	callbacks.Set(nil, nil)

	v := reflect.ValueOf(callbacks)
	assert.Equal(t, 2, v.NumField(), "number of fields must be 2, if not, that means another field is added. add that field to the test and increase the number")

	assert.NotNil(t, callbacks.onPacket.Load())
	assert.NotNil(t, callbacks.onClose.Load())

	// Calling with nil callbacks set must not panic.
	callbacks.OnPacket(nil)
	callbacks.OnClose("noop", nil)
}

func TestCallbacksReplace(t *testing.T) {
	callbacks := NewCallbacks()

	first := 0
	callbacks.Set(func(packet ...*parser.Packet) { first++ }, nil)
	callbacks.OnPacket(nil)

	second := 0
	callbacks.Set(func(packet ...*parser.Packet) { second++ }, nil)
	callbacks.OnPacket(nil)
	callbacks.OnPacket(nil)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}
