// Package comms holds the envelope exchanged with websocket clients.
package comms

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Message is one JSON frame on a socket. Type names the payload struct.
type Message struct {
	Type     string      `json:"type"`
	Contents interface{} `json:"contents,omitempty"`
}

// ErrMalformed is returned by Decode when contents do not fit the request.
var ErrMalformed = errors.New("malformed contents")

// ToMessage wraps contents in a Message typed after its struct name. A nil
// contents gives an empty Message.
func ToMessage(contents interface{}) Message {
	if contents == nil {
		return Message{}
	}
	t := reflect.TypeOf(contents)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return Message{Type: t.Name(), Contents: contents}
}

// Decode copies the loosely typed contents of an incoming message into out,
// matching fields by their json tags.
func Decode(m Message, out interface{}) error {
	if m.Contents == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(m.Contents); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, m.Type, err)
	}
	return nil
}

// ErrorResponse is returned to the client when a request is rejected.
type ErrorResponse struct {
	Reason string `json:"reason"`
}
