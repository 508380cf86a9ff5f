package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lychee-technology/docbase"
)

var queryKindTags = map[docbase.QueryKind]uint8{
	docbase.QueryCreateDatabase: 0,
	docbase.QueryDropDatabase:   1,
	docbase.QueryListDatabases:  2,
	docbase.QueryCreateTable:    3,
	docbase.QueryDropTable:      4,
	docbase.QueryListTables:     5,
	docbase.QueryTable:          6,
	docbase.QueryGet:            7,
	docbase.QueryGetAll:         8,
	docbase.QueryInsert:         9,
	docbase.QueryUpdate:         10,
	docbase.QueryDelete:         11,
	docbase.QueryFilter:         12,
	docbase.QueryOrderBy:        13,
	docbase.QueryLimit:          14,
	docbase.QuerySkip:           15,
	docbase.QueryCount:          16,
	docbase.QueryPluck:          17,
	docbase.QueryWithout:        18,
	docbase.QueryExpression:     19,
	docbase.QuerySubquery:       20,
}

var queryKindByTag = func() map[uint8]docbase.QueryKind {
	out := make(map[uint8]docbase.QueryKind, len(queryKindTags))
	for k, v := range queryKindTags {
		out[v] = k
	}
	return out
}()

func encodeSortFields(w *bytes.Buffer, fields []docbase.SortField) {
	writeUint32(w, uint32(len(fields)))
	for _, f := range fields {
		EncodeFieldRef(w, f.Field)
		writeBool(w, f.Descending)
	}
}

func decodeSortFields(r io.Reader) ([]docbase.SortField, error) {
	br := byteReader{r}
	n, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]docbase.SortField, 0, n)
	for i := uint32(0); i < n; i++ {
		f, err := DecodeFieldRef(r)
		if err != nil {
			return nil, err
		}
		desc, err := br.readBool()
		if err != nil {
			return nil, err
		}
		out = append(out, docbase.SortField{Field: f, Descending: desc})
	}
	return out, nil
}

func encodeFieldRefs(w *bytes.Buffer, refs []docbase.FieldRef) {
	writeUint32(w, uint32(len(refs)))
	for _, f := range refs {
		EncodeFieldRef(w, f)
	}
}

func decodeFieldRefs(r io.Reader) ([]docbase.FieldRef, error) {
	br := byteReader{r}
	n, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]docbase.FieldRef, 0, n)
	for i := uint32(0); i < n; i++ {
		f, err := DecodeFieldRef(r)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func EncodeCursor(w *bytes.Buffer, c *docbase.Cursor) {
	if c == nil {
		writeBool(w, false)
		return
	}
	writeBool(w, true)
	writeString(w, c.StartKey)
	writeUint32(w, c.BatchSize)
	if c.Sort == nil {
		writeBool(w, false)
	} else {
		writeBool(w, true)
		encodeSortFields(w, c.Sort.Fields)
	}
}

func DecodeCursor(r io.Reader) (*docbase.Cursor, error) {
	br := byteReader{r}
	present, err := br.readBool()
	if err != nil || !present {
		return nil, err
	}
	startKey, err := br.readString()
	if err != nil {
		return nil, err
	}
	batch, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	c := &docbase.Cursor{StartKey: startKey, BatchSize: batch}
	hasSort, err := br.readBool()
	if err != nil {
		return nil, err
	}
	if hasSort {
		fields, err := decodeSortFields(r)
		if err != nil {
			return nil, err
		}
		c.Sort = &docbase.SortOptions{Fields: fields}
	}
	return c, nil
}

func encodeQueryOptions(w *bytes.Buffer, o docbase.QueryOptions) {
	EncodeCursor(w, o.Cursor)
	writeInt64(w, o.TimeoutMs)
	writeBool(w, o.Explain)
	writeBool(w, o.Export)
}

func decodeQueryOptions(r io.Reader) (docbase.QueryOptions, error) {
	br := byteReader{r}
	cursor, err := DecodeCursor(r)
	if err != nil {
		return docbase.QueryOptions{}, err
	}
	timeout, err := br.readInt64()
	if err != nil {
		return docbase.QueryOptions{}, err
	}
	explain, err := br.readBool()
	if err != nil {
		return docbase.QueryOptions{}, err
	}
	export, err := br.readBool()
	if err != nil {
		return docbase.QueryOptions{}, err
	}
	return docbase.QueryOptions{Cursor: cursor, TimeoutMs: timeout, Explain: explain, Export: export}, nil
}

func encodeOptionalQuery(w *bytes.Buffer, q *docbase.Query) error {
	if q == nil {
		writeBool(w, false)
		return nil
	}
	writeBool(w, true)
	return EncodeQuery(w, q)
}

func decodeOptionalQuery(r io.Reader) (*docbase.Query, error) {
	br := byteReader{r}
	present, err := br.readBool()
	if err != nil || !present {
		return nil, err
	}
	return DecodeQuery(r)
}

// EncodeQuery writes q's recursive tree form (spec.md §3): a kind tag,
// the source pointer (if any), then the fields relevant to that kind.
func EncodeQuery(w *bytes.Buffer, q *docbase.Query) error {
	tag, ok := queryKindTags[q.Kind]
	if !ok {
		return fmt.Errorf("wire: unknown query kind %q", q.Kind)
	}
	writeUint8(w, tag)
	if err := encodeOptionalQuery(w, q.Source); err != nil {
		return err
	}
	encodeQueryOptions(w, q.Options)

	switch q.Kind {
	case docbase.QueryCreateDatabase, docbase.QueryDropDatabase:
		writeString(w, q.Database)
	case docbase.QueryListDatabases:
	case docbase.QueryCreateTable:
		writeString(w, q.TableRef.Database)
		writeString(w, q.TableRef.Table)
		writeString(w, q.Schema)
	case docbase.QueryDropTable:
		writeString(w, q.TableRef.Database)
		writeString(w, q.TableRef.Table)
	case docbase.QueryListTables:
		writeString(w, q.Database)
	case docbase.QueryTable:
		writeString(w, q.TableRef.Database)
		writeString(w, q.TableRef.Table)
	case docbase.QueryGet:
		if err := EncodeExpression(w, q.Key); err != nil {
			return err
		}
	case docbase.QueryGetAll:
		writeUint32(w, uint32(len(q.Keys)))
		for _, k := range q.Keys {
			if err := EncodeExpression(w, k); err != nil {
				return err
			}
		}
	case docbase.QueryInsert:
		writeUint32(w, uint32(len(q.Documents)))
		for _, d := range q.Documents {
			if err := EncodeDatum(w, d); err != nil {
				return err
			}
		}
	case docbase.QueryUpdate:
		if err := EncodeExpression(w, q.Patch); err != nil {
			return err
		}
	case docbase.QueryDelete:
	case docbase.QueryFilter:
		if err := EncodeExpression(w, q.Predicate); err != nil {
			return err
		}
	case docbase.QueryOrderBy:
		encodeSortFields(w, q.Sort)
	case docbase.QueryLimit, docbase.QuerySkip:
		writeInt64(w, q.Count)
	case docbase.QueryCount:
	case docbase.QueryPluck, docbase.QueryWithout:
		encodeFieldRefs(w, q.Fields)
	case docbase.QueryExpression:
		if err := EncodeExpression(w, q.Expr); err != nil {
			return err
		}
	case docbase.QuerySubquery:
		if err := encodeOptionalQuery(w, q.Query); err != nil {
			return err
		}
	}
	return nil
}

// DecodeQuery is the inverse of EncodeQuery.
func DecodeQuery(r io.Reader) (*docbase.Query, error) {
	br := byteReader{r}
	tag, err := br.readUint8()
	if err != nil {
		return nil, err
	}
	kind, ok := queryKindByTag[tag]
	if !ok {
		return nil, fmt.Errorf("wire: unknown query tag %d", tag)
	}
	source, err := decodeOptionalQuery(r)
	if err != nil {
		return nil, err
	}
	opts, err := decodeQueryOptions(r)
	if err != nil {
		return nil, err
	}
	q := &docbase.Query{Kind: kind, Source: source, Options: opts}

	switch kind {
	case docbase.QueryCreateDatabase, docbase.QueryDropDatabase:
		q.Database, err = br.readString()
	case docbase.QueryListDatabases:
	case docbase.QueryCreateTable:
		q.TableRef.Database, err = br.readString()
		if err != nil {
			return nil, err
		}
		q.TableRef.Table, err = br.readString()
		if err != nil {
			return nil, err
		}
		q.Schema, err = br.readString()
	case docbase.QueryDropTable:
		q.TableRef.Database, err = br.readString()
		if err != nil {
			return nil, err
		}
		q.TableRef.Table, err = br.readString()
	case docbase.QueryListTables:
		q.Database, err = br.readString()
	case docbase.QueryTable:
		q.TableRef.Database, err = br.readString()
		if err != nil {
			return nil, err
		}
		q.TableRef.Table, err = br.readString()
	case docbase.QueryGet:
		q.Key, err = DecodeExpression(r)
	case docbase.QueryGetAll:
		var n uint32
		n, err = br.readUint32()
		if err != nil {
			return nil, err
		}
		q.Keys = make([]docbase.Expression, 0, n)
		for i := uint32(0); i < n; i++ {
			var k docbase.Expression
			k, err = DecodeExpression(r)
			if err != nil {
				return nil, err
			}
			q.Keys = append(q.Keys, k)
		}
	case docbase.QueryInsert:
		var n uint32
		n, err = br.readUint32()
		if err != nil {
			return nil, err
		}
		q.Documents = make([]docbase.Datum, 0, n)
		for i := uint32(0); i < n; i++ {
			var d docbase.Datum
			d, err = DecodeDatum(r)
			if err != nil {
				return nil, err
			}
			q.Documents = append(q.Documents, d)
		}
	case docbase.QueryUpdate:
		q.Patch, err = DecodeExpression(r)
	case docbase.QueryDelete:
	case docbase.QueryFilter:
		q.Predicate, err = DecodeExpression(r)
	case docbase.QueryOrderBy:
		q.Sort, err = decodeSortFields(r)
	case docbase.QueryLimit, docbase.QuerySkip:
		q.Count, err = br.readInt64()
	case docbase.QueryCount:
	case docbase.QueryPluck, docbase.QueryWithout:
		q.Fields, err = decodeFieldRefs(r)
	case docbase.QueryExpression:
		q.Expr, err = DecodeExpression(r)
	case docbase.QuerySubquery:
		q.Query, err = decodeOptionalQuery(r)
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}
