package wire

import (
	"bytes"
	"io"

	"github.com/lychee-technology/docbase"
)

var messageTypeTags = map[docbase.MessageType]uint8{
	docbase.MessageQuery:        0,
	docbase.MessageResponse:     1,
	docbase.MessageError:        2,
	docbase.MessageAuthRequest:  3,
	docbase.MessageAuthResponse: 4,
	docbase.MessagePing:         5,
	docbase.MessagePong:         6,
}

var messageTypeByTag = func() map[uint8]docbase.MessageType {
	out := make(map[uint8]docbase.MessageType, len(messageTypeTags))
	for k, v := range messageTypeTags {
		out[v] = k
	}
	return out
}()

// EncodeEnvelope writes env's body (version, query id, type tag, payload),
// the part that WriteFrame length-prefixes (spec.md §4.2/§6).
func EncodeEnvelope(w *bytes.Buffer, env *docbase.Envelope) error {
	writeUint8(w, uint8(env.Version))
	writeString(w, env.QueryID)
	tag, ok := messageTypeTags[env.Type]
	if !ok {
		return docbase.NewUnexpectedMessageType(env.Type)
	}
	writeUint8(w, tag)
	switch env.Type {
	case docbase.MessageQuery:
		if env.Query == nil {
			return docbase.NewUnexpectedMessageType(env.Type)
		}
		return EncodeQuery(w, env.Query)
	case docbase.MessageResponse:
		if env.Result == nil {
			return docbase.NewUnexpectedMessageType(env.Type)
		}
		return EncodeQueryResult(w, env.Result)
	case docbase.MessageError:
		if env.Err == nil {
			return docbase.NewUnexpectedMessageType(env.Type)
		}
		encodeErrorPayload(w, env.Err)
		return nil
	case docbase.MessageAuthRequest, docbase.MessageAuthResponse, docbase.MessagePing, docbase.MessagePong:
		// No payload in the core: auth is a reserved, unimplemented slot
		// (spec.md §1); ping/pong carry only the envelope header.
		return nil
	default:
		return docbase.NewUnexpectedMessageType(env.Type)
	}
}

// DecodeEnvelope is the inverse of EncodeEnvelope. A version mismatch or
// unrecognised message type surfaces as the corresponding DBError so
// cmd/server can close the connection per spec.md §7.
func DecodeEnvelope(r io.Reader) (*docbase.Envelope, error) {
	br := byteReader{r}
	v, err := br.readUint8()
	if err != nil {
		return nil, err
	}
	version := docbase.Version(v)
	if version != docbase.Version1 {
		return nil, docbase.NewVersionMismatch(version)
	}
	queryID, err := br.readString()
	if err != nil {
		return nil, docbase.NewDecodeError(err)
	}
	tag, err := br.readUint8()
	if err != nil {
		return nil, docbase.NewDecodeError(err)
	}
	msgType, ok := messageTypeByTag[tag]
	if !ok {
		return nil, docbase.NewUnexpectedMessageType(docbase.MessageType("unknown"))
	}
	env := &docbase.Envelope{Version: version, QueryID: queryID, Type: msgType}
	switch msgType {
	case docbase.MessageQuery:
		q, err := DecodeQuery(r)
		if err != nil {
			return nil, docbase.NewDecodeError(err)
		}
		env.Query = q
	case docbase.MessageResponse:
		res, err := DecodeQueryResult(r)
		if err != nil {
			return nil, docbase.NewDecodeError(err)
		}
		env.Result = res
	case docbase.MessageError:
		payload, err := decodeErrorPayload(r)
		if err != nil {
			return nil, docbase.NewDecodeError(err)
		}
		env.Err = payload
	case docbase.MessageAuthRequest, docbase.MessageAuthResponse, docbase.MessagePing, docbase.MessagePong:
	default:
		return nil, docbase.NewUnexpectedMessageType(msgType)
	}
	return env, nil
}
