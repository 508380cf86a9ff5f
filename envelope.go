package docbase

// Version identifies the wire envelope format (spec.md §4.2/§6).
type Version uint8

// Version1 is the only envelope version the core currently emits or accepts.
const Version1 Version = 1

// MessageType discriminates the payload an Envelope carries (spec.md §6).
type MessageType string

const (
	MessageQuery        MessageType = "query"
	MessageResponse     MessageType = "response"
	MessageError        MessageType = "error"
	MessageAuthRequest  MessageType = "auth_request"
	MessageAuthResponse MessageType = "auth_response"
	MessagePing         MessageType = "ping"
	MessagePong         MessageType = "pong"
)

// Envelope is the wire frame body described by spec.md §4.2/§6: a version,
// a client-assigned correlation id, a message type, and a type-specific
// payload. Exactly one of Query/Result/Err is populated for query, response
// and error messages, selected by Type; ping/pong and auth messages carry no
// payload in the core (the auth slot is reserved, unimplemented, per
// spec.md §1's Non-goals).
type Envelope struct {
	Version Version
	QueryID string
	Type    MessageType

	Query  *Query
	Result *QueryResult
	Err    *ErrorPayload
}

// ErrorPayload is the wire shape of an Error envelope (spec.md §6).
type ErrorPayload struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Line    int32  `json:"line"`
	Column  int32  `json:"column"`
}

// ErrorPayloadFromDBError projects a DBError onto the wire error shape.
// Line/Column are always zero: the core has no query source positions to
// report (queries arrive pre-parsed, per spec.md §1's Non-goals).
func ErrorPayloadFromDBError(err *DBError) *ErrorPayload {
	return &ErrorPayload{
		Code:    errorCodeOrdinal(err.Code),
		Message: err.Message,
		Type:    string(err.Type),
	}
}

// errorCodeOrdinal assigns a stable small integer to each known error code
// so the wire payload's numeric `code` field is deterministic across
// processes. Unknown codes (should not occur for errors raised via the
// New* constructors) map to 0.
func errorCodeOrdinal(code string) int32 {
	ordinals := map[string]int32{
		ErrCodeBackendError:         1,
		ErrCodeInvalidUtf8:          2,
		ErrCodeInvalidDocument:      3,
		ErrCodeEncodeError:          4,
		ErrCodeDecodeError:          5,
		ErrCodeMissingColumnFamily:  6,
		ErrCodeInvalidDatabaseName:  7,
		ErrCodeInvalidTableName:     8,
		ErrCodeResourceExhausted:    9,
		ErrCodeDatabaseExists:       10,
		ErrCodeDatabaseNotFound:     11,
		ErrCodeTableExists:         12,
		ErrCodeTableNotFound:        13,
		ErrCodeReservedNamespace:    14,
		ErrCodeUnsupportedOperation: 15,
		ErrCodeInvalidExpression:    16,
		ErrCodeMissingTableRef:      17,
		ErrCodeInvalidConstant:      18,
		ErrCodeOptimizationFailed:   19,
		ErrCodeStorageError:         20,
		ErrCodeInvalidKeyType:       21,
		ErrCodeMissingField:         22,
		ErrCodeInvalidInsertTgt:     23,
		ErrCodeInvalidPredicate:     24,
		ErrCodeTypeMismatch:         25,
		ErrCodeDivisionByZero:       26,
		ErrCodeInvalidLimit:         27,
		ErrCodeInvalidSkip:          28,
		ErrCodeVersionMismatch:      29,
		ErrCodeUnexpectedType:       30,
		ErrCodeFrameTooLarge:        31,
		ErrCodeInternal:             99,
	}
	return ordinals[code]
}

// QueryResult is the tagged union of query outcomes described by
// spec.md §3. Only the fields relevant to the originating QueryKind are
// populated.
type QueryResult struct {
	// TableScan/Filter/OrderBy/Limit/Skip/Pluck/Without/GetAll.
	Documents []Datum
	Cursor    *Cursor

	// Get.
	Document *Datum

	// Count.
	Count uint64

	// Insert.
	Inserted      uint64
	GeneratedKeys []Datum

	// Update.
	Updated uint64

	// Delete.
	Deleted uint64

	// CreateDatabase/CreateTable.
	Created uint64
	// DropDatabase/DropTable.
	Dropped uint64

	// ListDatabases/ListTables.
	Names []string

	// Explain carries the Explain tree instead of a result when
	// QueryOptions.Explain is true (spec.md §4.3).
	Explain *ExplainNode

	// Stats accompanies every non-explain result (spec.md §4.5).
	Stats *Stats
}

// Stats accumulates per-query execution statistics, surfaced alongside
// every QueryResult (spec.md §4.5).
type Stats struct {
	RowsProcessed uint64
	RowsReturned  uint64
	DurationNanos int64
	CacheHits     uint64
	CacheMisses   uint64
	ErrorCount    uint64
}
