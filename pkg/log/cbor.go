package log

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// EventTag is the CBOR tag number wrapping every encoded trace event
// ("pt", physmem trace). A stream can be recognized from its first byte
// sequence without decoding it.
const EventTag uint64 = 0x7074

// Encoder and decoder modes shared by FileLogger and Reader. Encoding is
// deterministic; decoding accepts events with or without EventTag.
var (
	traceEncMode cbor.EncMode
	traceDecMode cbor.DecMode
)

func init() {
	tags := cbor.NewTagSet()
	err := tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagOptional},
		reflect.TypeOf(Event{}),
		EventTag,
	)
	if err != nil {
		panic(fmt.Sprintf("failed to register trace event tag: %v", err))
	}

	traceEncMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncModeWithTags(tags)
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR encoder mode: %v", err))
	}

	traceDecMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecModeWithTags(tags)
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes one tagged trace event with integer map keys.
func EncodeEvent(event Event) ([]byte, error) {
	return traceEncMode.Marshal(event)
}

// DecodeEvent decodes one trace event. An event carrying a tag other than
// EventTag is rejected.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := traceDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a stream encoder for trace events.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return traceEncMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder for trace events.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return traceDecMode.NewDecoder(r)
}
