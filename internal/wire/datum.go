package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lychee-technology/docbase"
)

// EncodeDatum writes d's self-describing binary form: a one-byte variant
// tag followed by the variant's payload (spec.md §6).
func EncodeDatum(w *bytes.Buffer, d docbase.Datum) error {
	writeUint8(w, uint8(d.Kind))
	switch d.Kind {
	case docbase.KindNull:
	case docbase.KindBool:
		writeBool(w, d.Bool)
	case docbase.KindInt:
		writeInt64(w, d.Int)
	case docbase.KindFloat:
		writeFloat64(w, d.Float)
	case docbase.KindString:
		writeString(w, d.Str)
	case docbase.KindBinary:
		writeBytes(w, d.Binary)
	case docbase.KindArray:
		writeUint32(w, uint32(len(d.Array)))
		for _, elem := range d.Array {
			if err := EncodeDatum(w, elem); err != nil {
				return err
			}
		}
	case docbase.KindObject:
		writeUint32(w, uint32(len(d.Object)))
		for k, v := range d.Object {
			writeString(w, k)
			if err := EncodeDatum(w, v); err != nil {
				return err
			}
		}
	case docbase.KindParam:
		writeString(w, d.Param)
	default:
		return fmt.Errorf("wire: unknown datum kind %d", d.Kind)
	}
	return nil
}

// DecodeDatum is the inverse of EncodeDatum.
func DecodeDatum(r io.Reader) (docbase.Datum, error) {
	br := byteReader{r}
	tag, err := br.readUint8()
	if err != nil {
		return docbase.Datum{}, err
	}
	switch docbase.Kind(tag) {
	case docbase.KindNull:
		return docbase.Null(), nil
	case docbase.KindBool:
		v, err := br.readBool()
		if err != nil {
			return docbase.Datum{}, err
		}
		return docbase.NewBool(v), nil
	case docbase.KindInt:
		v, err := br.readInt64()
		if err != nil {
			return docbase.Datum{}, err
		}
		return docbase.NewInt(v), nil
	case docbase.KindFloat:
		v, err := br.readFloat64()
		if err != nil {
			return docbase.Datum{}, err
		}
		return docbase.NewFloat(v), nil
	case docbase.KindString:
		v, err := br.readString()
		if err != nil {
			return docbase.Datum{}, err
		}
		return docbase.NewString(v), nil
	case docbase.KindBinary:
		v, err := br.readBytes()
		if err != nil {
			return docbase.Datum{}, err
		}
		return docbase.NewBinary(v), nil
	case docbase.KindArray:
		n, err := br.readUint32()
		if err != nil {
			return docbase.Datum{}, err
		}
		arr := make([]docbase.Datum, 0, n)
		for i := uint32(0); i < n; i++ {
			elem, err := DecodeDatum(r)
			if err != nil {
				return docbase.Datum{}, err
			}
			arr = append(arr, elem)
		}
		return docbase.NewArray(arr), nil
	case docbase.KindObject:
		n, err := br.readUint32()
		if err != nil {
			return docbase.Datum{}, err
		}
		obj := make(map[string]docbase.Datum, n)
		for i := uint32(0); i < n; i++ {
			k, err := br.readString()
			if err != nil {
				return docbase.Datum{}, err
			}
			v, err := DecodeDatum(r)
			if err != nil {
				return docbase.Datum{}, err
			}
			obj[k] = v
		}
		return docbase.NewObject(obj), nil
	case docbase.KindParam:
		v, err := br.readString()
		if err != nil {
			return docbase.Datum{}, err
		}
		return docbase.NewParam(v), nil
	default:
		return docbase.Datum{}, fmt.Errorf("wire: unknown datum tag %d", tag)
	}
}
