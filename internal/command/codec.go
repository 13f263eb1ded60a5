package command

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrUnknownCommand is returned when decoding a record whose type tag is not
// a known Kind.
var ErrUnknownCommand = errors.New("unknown command type")

// On the wire every command is a JSON object whose "type" member is its Kind:
//
//	{"type":"SetText","id":"n0","index":0,"text":"20"}
//	{"type":"Step"}

func tagged(kind Kind, plain any) ([]byte, error) {
	body, err := json.Marshal(plain)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", kind)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	tag, _ := json.Marshal(string(kind))
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func (c CreateNode) MarshalJSON() ([]byte, error) {
	type plain CreateNode
	return tagged(c.Kind(), plain(c))
}

func (c DeleteNode) MarshalJSON() ([]byte, error) {
	type plain DeleteNode
	return tagged(c.Kind(), plain(c))
}

func (c SetText) MarshalJSON() ([]byte, error) {
	type plain SetText
	return tagged(c.Kind(), plain(c))
}

func (c SetElementCount) MarshalJSON() ([]byte, error) {
	type plain SetElementCount
	return tagged(c.Kind(), plain(c))
}

func (c SetHighlight) MarshalJSON() ([]byte, error) {
	type plain SetHighlight
	return tagged(c.Kind(), plain(c))
}

func (c SetEdgeHighlight) MarshalJSON() ([]byte, error) {
	type plain SetEdgeHighlight
	return tagged(c.Kind(), plain(c))
}

func (c Connect) MarshalJSON() ([]byte, error) {
	type plain Connect
	return tagged(c.Kind(), plain(c))
}

func (c Disconnect) MarshalJSON() ([]byte, error) {
	type plain Disconnect
	return tagged(c.Kind(), plain(c))
}

func (c Step) MarshalJSON() ([]byte, error) {
	return tagged(c.Kind(), struct{}{})
}

func (c ResizeLayout) MarshalJSON() ([]byte, error) {
	type plain ResizeLayout
	return tagged(c.Kind(), plain(c))
}

func (c SetMessage) MarshalJSON() ([]byte, error) {
	type plain SetMessage
	return tagged(c.Kind(), plain(c))
}

// Marshal encodes a command list as a JSON array.
func Marshal(cmds []Command) ([]byte, error) {
	if cmds == nil {
		cmds = []Command{}
	}
	return json.Marshal(cmds)
}

// Unmarshal decodes a JSON array produced by Marshal.
func Unmarshal(data []byte) ([]Command, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Wrap(err, "decoding command list")
	}
	cmds := make([]Command, 0, len(raws))
	for i, raw := range raws {
		c, err := Decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "command %d", i)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// Decode decodes one tagged command.
func Decode(raw []byte) (Command, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errors.Wrap(err, "decoding command")
	}

	switch head.Type {
	case KindCreateNode:
		return decodeAs[CreateNode](raw)
	case KindDeleteNode:
		return decodeAs[DeleteNode](raw)
	case KindSetText:
		return decodeAs[SetText](raw)
	case KindSetElementCount:
		return decodeAs[SetElementCount](raw)
	case KindSetHighlight:
		return decodeAs[SetHighlight](raw)
	case KindSetEdgeHighlight:
		return decodeAs[SetEdgeHighlight](raw)
	case KindConnect:
		return decodeAs[Connect](raw)
	case KindDisconnect:
		return decodeAs[Disconnect](raw)
	case KindStep:
		return Step{}, nil
	case KindResizeLayout:
		return decodeAs[ResizeLayout](raw)
	case KindSetMessage:
		return decodeAs[SetMessage](raw)
	}
	return nil, errors.Wrapf(ErrUnknownCommand, "%q", string(head.Type))
}

func decodeAs[T Command](raw []byte) (Command, error) {
	var c T
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", c.Kind())
	}
	return c, nil
}
