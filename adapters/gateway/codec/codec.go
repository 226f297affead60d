package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Go-routine-4595/iba-monitor/model"
)

const (
	JSON    = "json"
	MsgPack = "msgpack"
)

// AlarmEnvelope is the wire form of an alarm event on every gateway.
type AlarmEnvelope struct {
	Source string         `json:"source" msgpack:"source"`
	Alarm  model.AlarmLog `json:"alarm" msgpack:"alarm"`
}

type Codec struct {
	format string
	source string
}

func New(format string, source string) (Codec, error) {
	switch format {
	case "", JSON:
		format = JSON
	case MsgPack:
	default:
		return Codec{}, fmt.Errorf("unknown payload format %q", format)
	}
	if source == "" {
		source = "iba-monitor"
	}
	return Codec{format: format, source: source}, nil
}

func (c Codec) ContentType() string {
	if c.format == MsgPack {
		return "application/msgpack"
	}
	return "application/json"
}

func (c Codec) Encode(a model.AlarmLog) ([]byte, error) {
	var (
		b   []byte
		err error
	)

	env := AlarmEnvelope{Source: c.source, Alarm: a}
	if c.format == MsgPack {
		b, err = msgpack.Marshal(env)
	} else {
		b, err = json.Marshal(env)
	}
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to marshal alarm"))
	}
	return b, nil
}

func (c Codec) Decode(b []byte) (AlarmEnvelope, error) {
	var (
		env AlarmEnvelope
		err error
	)

	if c.format == MsgPack {
		err = msgpack.Unmarshal(b, &env)
	} else {
		err = json.Unmarshal(b, &env)
	}
	return env, err
}
