package wire

import (
	"bytes"
	"io"

	"github.com/lychee-technology/docbase"
)

func encodeDatums(w *bytes.Buffer, docs []docbase.Datum) error {
	writeUint32(w, uint32(len(docs)))
	for _, d := range docs {
		if err := EncodeDatum(w, d); err != nil {
			return err
		}
	}
	return nil
}

func decodeDatums(r io.Reader) ([]docbase.Datum, error) {
	br := byteReader{r}
	n, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]docbase.Datum, 0, n)
	for i := uint32(0); i < n; i++ {
		d, err := DecodeDatum(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func encodeStrings(w *bytes.Buffer, ss []string) {
	writeUint32(w, uint32(len(ss)))
	for _, s := range ss {
		writeString(w, s)
	}
}

func decodeStrings(r io.Reader) ([]string, error) {
	br := byteReader{r}
	n, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := br.readString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func encodeStats(w *bytes.Buffer, s *docbase.Stats) {
	if s == nil {
		writeBool(w, false)
		return
	}
	writeBool(w, true)
	writeUint64(w, s.RowsProcessed)
	writeUint64(w, s.RowsReturned)
	writeInt64(w, s.DurationNanos)
	writeUint64(w, s.CacheHits)
	writeUint64(w, s.CacheMisses)
	writeUint64(w, s.ErrorCount)
}

func decodeStats(r io.Reader) (*docbase.Stats, error) {
	br := byteReader{r}
	present, err := br.readBool()
	if err != nil || !present {
		return nil, err
	}
	s := &docbase.Stats{}
	if s.RowsProcessed, err = br.readUint64(); err != nil {
		return nil, err
	}
	if s.RowsReturned, err = br.readUint64(); err != nil {
		return nil, err
	}
	if s.DurationNanos, err = br.readInt64(); err != nil {
		return nil, err
	}
	if s.CacheHits, err = br.readUint64(); err != nil {
		return nil, err
	}
	if s.CacheMisses, err = br.readUint64(); err != nil {
		return nil, err
	}
	if s.ErrorCount, err = br.readUint64(); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeQueryResult writes res per spec.md §3's tagged-union shape. The
// Explain field is not encoded: cmd/server's dispatch sets only
// QueryResult.Explain for a query with QueryOptions.Explain true, so that
// Response reaches the client with no documents and zero counts.
func EncodeQueryResult(w *bytes.Buffer, res *docbase.QueryResult) error {
	if err := encodeDatums(w, res.Documents); err != nil {
		return err
	}
	EncodeCursor(w, res.Cursor)
	if res.Document != nil {
		writeBool(w, true)
		if err := EncodeDatum(w, *res.Document); err != nil {
			return err
		}
	} else {
		writeBool(w, false)
	}
	writeUint64(w, res.Count)
	writeUint64(w, res.Inserted)
	if err := encodeDatums(w, res.GeneratedKeys); err != nil {
		return err
	}
	writeUint64(w, res.Updated)
	writeUint64(w, res.Deleted)
	writeUint64(w, res.Created)
	writeUint64(w, res.Dropped)
	encodeStrings(w, res.Names)
	encodeStats(w, res.Stats)
	return nil
}

// DecodeQueryResult is the inverse of EncodeQueryResult.
func DecodeQueryResult(r io.Reader) (*docbase.QueryResult, error) {
	br := byteReader{r}
	res := &docbase.QueryResult{}
	var err error
	if res.Documents, err = decodeDatums(r); err != nil {
		return nil, err
	}
	if res.Cursor, err = DecodeCursor(r); err != nil {
		return nil, err
	}
	hasDoc, err := br.readBool()
	if err != nil {
		return nil, err
	}
	if hasDoc {
		d, err := DecodeDatum(r)
		if err != nil {
			return nil, err
		}
		res.Document = &d
	}
	if res.Count, err = br.readUint64(); err != nil {
		return nil, err
	}
	if res.Inserted, err = br.readUint64(); err != nil {
		return nil, err
	}
	if res.GeneratedKeys, err = decodeDatums(r); err != nil {
		return nil, err
	}
	if res.Updated, err = br.readUint64(); err != nil {
		return nil, err
	}
	if res.Deleted, err = br.readUint64(); err != nil {
		return nil, err
	}
	if res.Created, err = br.readUint64(); err != nil {
		return nil, err
	}
	if res.Dropped, err = br.readUint64(); err != nil {
		return nil, err
	}
	if res.Names, err = decodeStrings(r); err != nil {
		return nil, err
	}
	if res.Stats, err = decodeStats(r); err != nil {
		return nil, err
	}
	return res, nil
}

func encodeErrorPayload(w *bytes.Buffer, e *docbase.ErrorPayload) {
	writeUint32(w, uint32(e.Code))
	writeString(w, e.Message)
	writeString(w, e.Type)
	writeUint32(w, uint32(e.Line))
	writeUint32(w, uint32(e.Column))
}

func decodeErrorPayload(r io.Reader) (*docbase.ErrorPayload, error) {
	br := byteReader{r}
	code, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	msg, err := br.readString()
	if err != nil {
		return nil, err
	}
	typ, err := br.readString()
	if err != nil {
		return nil, err
	}
	line, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	col, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	return &docbase.ErrorPayload{
		Code:    int32(code),
		Message: msg,
		Type:    typ,
		Line:    int32(line),
		Column:  int32(col),
	}, nil
}
