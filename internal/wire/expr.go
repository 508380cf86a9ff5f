package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lychee-technology/docbase"
)

func EncodeFieldRef(w *bytes.Buffer, f docbase.FieldRef) {
	writeUint32(w, uint32(len(f.Segments)))
	for _, seg := range f.Segments {
		writeString(w, seg)
	}
}

func DecodeFieldRef(r io.Reader) (docbase.FieldRef, error) {
	br := byteReader{r}
	n, err := br.readUint32()
	if err != nil {
		return docbase.FieldRef{}, err
	}
	segs := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := br.readString()
		if err != nil {
			return docbase.FieldRef{}, err
		}
		segs = append(segs, s)
	}
	return docbase.FieldRef{Segments: segs}, nil
}

var exprKindTags = map[docbase.ExpressionKind]uint8{
	docbase.ExprLiteral:  0,
	docbase.ExprField:    1,
	docbase.ExprVariable: 2,
	docbase.ExprBinary:   3,
	docbase.ExprUnary:    4,
	docbase.ExprMatch:    5,
	docbase.ExprSubquery: 6,
}

var exprKindByTag = func() map[uint8]docbase.ExpressionKind {
	out := make(map[uint8]docbase.ExpressionKind, len(exprKindTags))
	for k, v := range exprKindTags {
		out[v] = k
	}
	return out
}()

func EncodeExpression(w *bytes.Buffer, e docbase.Expression) error {
	tag, ok := exprKindTags[e.Kind]
	if !ok {
		return fmt.Errorf("wire: unknown expression kind %q", e.Kind)
	}
	writeUint8(w, tag)
	switch e.Kind {
	case docbase.ExprLiteral:
		return EncodeDatum(w, e.Literal)
	case docbase.ExprField:
		EncodeFieldRef(w, e.Field)
	case docbase.ExprVariable:
		writeString(w, e.Name)
	case docbase.ExprBinary:
		writeString(w, string(e.BinOp))
		if err := EncodeExpression(w, *e.Left); err != nil {
			return err
		}
		return EncodeExpression(w, *e.Right)
	case docbase.ExprUnary:
		writeString(w, string(e.UnOp))
		return EncodeExpression(w, *e.Operand)
	case docbase.ExprMatch:
		if err := EncodeExpression(w, *e.MatchValue); err != nil {
			return err
		}
		writeString(w, e.MatchPattern)
		writeString(w, e.MatchFlags)
	case docbase.ExprSubquery:
		return EncodeQuery(w, e.Subquery)
	}
	return nil
}

func DecodeExpression(r io.Reader) (docbase.Expression, error) {
	br := byteReader{r}
	tag, err := br.readUint8()
	if err != nil {
		return docbase.Expression{}, err
	}
	kind, ok := exprKindByTag[tag]
	if !ok {
		return docbase.Expression{}, fmt.Errorf("wire: unknown expression tag %d", tag)
	}
	switch kind {
	case docbase.ExprLiteral:
		d, err := DecodeDatum(r)
		if err != nil {
			return docbase.Expression{}, err
		}
		return docbase.Lit(d), nil
	case docbase.ExprField:
		f, err := DecodeFieldRef(r)
		if err != nil {
			return docbase.Expression{}, err
		}
		return docbase.FieldExpr(f), nil
	case docbase.ExprVariable:
		name, err := br.readString()
		if err != nil {
			return docbase.Expression{}, err
		}
		return docbase.Var(name), nil
	case docbase.ExprBinary:
		op, err := br.readString()
		if err != nil {
			return docbase.Expression{}, err
		}
		left, err := DecodeExpression(r)
		if err != nil {
			return docbase.Expression{}, err
		}
		right, err := DecodeExpression(r)
		if err != nil {
			return docbase.Expression{}, err
		}
		return docbase.Binary(docbase.BinaryOp(op), left, right), nil
	case docbase.ExprUnary:
		op, err := br.readString()
		if err != nil {
			return docbase.Expression{}, err
		}
		operand, err := DecodeExpression(r)
		if err != nil {
			return docbase.Expression{}, err
		}
		return docbase.Unary(docbase.UnaryOp(op), operand), nil
	case docbase.ExprMatch:
		val, err := DecodeExpression(r)
		if err != nil {
			return docbase.Expression{}, err
		}
		pattern, err := br.readString()
		if err != nil {
			return docbase.Expression{}, err
		}
		flags, err := br.readString()
		if err != nil {
			return docbase.Expression{}, err
		}
		return docbase.Match(val, pattern, flags), nil
	case docbase.ExprSubquery:
		q, err := DecodeQuery(r)
		if err != nil {
			return docbase.Expression{}, err
		}
		return docbase.Expression{Kind: docbase.ExprSubquery, Subquery: q}, nil
	default:
		return docbase.Expression{}, fmt.Errorf("wire: unhandled expression kind %q", kind)
	}
}
