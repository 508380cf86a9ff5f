package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/docbase"
)

func TestDatumRoundTrip(t *testing.T) {
	cases := []docbase.Datum{
		docbase.Null(),
		docbase.NewBool(true),
		docbase.NewInt(-42),
		docbase.NewFloat(3.25),
		docbase.NewString("hello"),
		docbase.NewBinary([]byte{1, 2, 3}),
		docbase.NewArray([]docbase.Datum{docbase.NewInt(1), docbase.NewString("x")}),
		docbase.NewObject(map[string]docbase.Datum{"id": docbase.NewString("abc"), "n": docbase.NewInt(7)}),
		docbase.NewParam("limit"),
	}
	for _, d := range cases {
		var buf bytes.Buffer
		require.NoError(t, EncodeDatum(&buf, d))
		got, err := DecodeDatum(&buf)
		require.NoError(t, err)
		assert.True(t, d.Equal(got), "round trip mismatch for kind %s", d.Kind)
	}
}

func TestExpressionRoundTrip(t *testing.T) {
	expr := docbase.Binary(docbase.OpAnd,
		docbase.Binary(docbase.OpEq, docbase.FieldExpr(docbase.NewFieldRef("status")), docbase.Lit(docbase.NewString("open"))),
		docbase.Unary(docbase.OpNot, docbase.Match(docbase.FieldExpr(docbase.NewFieldRef("name")), "^a", "i")),
	)
	var buf bytes.Buffer
	require.NoError(t, EncodeExpression(&buf, expr))
	got, err := DecodeExpression(&buf)
	require.NoError(t, err)
	assert.Equal(t, expr.Kind, got.Kind)
	assert.Equal(t, expr.Left.BinOp, got.Left.BinOp)
}

func TestQueryRoundTrip(t *testing.T) {
	q := &docbase.Query{
		Kind: docbase.QueryLimit,
		Count: 10,
		Source: &docbase.Query{
			Kind: docbase.QueryFilter,
			Predicate: docbase.Binary(docbase.OpGt, docbase.FieldExpr(docbase.NewFieldRef("age")), docbase.Lit(docbase.NewInt(21))),
			Source: &docbase.Query{
				Kind:     docbase.QueryTable,
				TableRef: docbase.TableRef{Database: "default", Table: "users"},
				Options: docbase.QueryOptions{
					Cursor: &docbase.Cursor{StartKey: "u100", BatchSize: 500},
				},
			},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeQuery(&buf, q))
	got, err := DecodeQuery(&buf)
	require.NoError(t, err)
	assert.Equal(t, docbase.QueryLimit, got.Kind)
	assert.Equal(t, int64(10), got.Count)
	assert.Equal(t, docbase.QueryFilter, got.Source.Kind)
	assert.Equal(t, "users", got.Source.Source.TableRef.Table)
	assert.Equal(t, "u100", got.Source.Source.Options.Cursor.StartKey)
}

func TestEnvelopeFrameRoundTrip(t *testing.T) {
	env := &docbase.Envelope{
		Version: docbase.Version1,
		QueryID: "q-1",
		Type:    docbase.MessageQuery,
		Query: &docbase.Query{
			Kind:     docbase.QueryTable,
			TableRef: docbase.TableRef{Database: "default", Table: "widgets"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, env))

	got, err := ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, env.QueryID, got.QueryID)
	assert.Equal(t, env.Type, got.Type)
	assert.Equal(t, "widgets", got.Query.TableRef.Table)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := ReadFrame(bufio.NewReader(&buf))
	require.Error(t, err)
}
