package dfise

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Document is the raw text of one simulation file.
type Document struct {
	ID   string // caller identifier, usually the file path
	Text string
}

// WarningKind classifies a recoverable extraction anomaly.
type WarningKind string

const (
	WarnMissingChannel   WarningKind = "missing_channel"
	WarnTrailingLiterals WarningKind = "trailing_literals"
	WarnIndexOutOfRange  WarningKind = "index_out_of_range"
)

// Warning is a non-fatal anomaly that narrowed the result.
type Warning struct {
	Kind     WarningKind
	Document string
	Channel  string // empty for document-wide warnings
	Count    int    // discarded literals or rows kept, depending on Kind
	Message  string
}

func (w Warning) String() string {
	return w.Message
}

// ChannelTable holds one sample sequence per resolved channel. Every
// sequence has length Rows.
type ChannelTable struct {
	Document string
	Columns  map[string][]float64
	Order    []string // resolved channels in request order
	Declared []string // full datasets list of the document
	Rows     int
	Warnings []Warning
}

// Column returns the samples of name and whether it was resolved.
func (t *ChannelTable) Column(name string) ([]float64, bool) {
	v, ok := t.Columns[name]
	return v, ok
}

// Extractor resolves requested channels in DF-ISE text documents. It keeps
// no state between calls and may be shared across goroutines.
type Extractor struct {
	logger log.Logger
}

// NewExtractor returns an extractor that reports warnings to logger. A nil
// logger discards them.
func NewExtractor(logger log.Logger) *Extractor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Extractor{logger: logger}
}

// Extract is a convenience wrapper for an anonymous document.
func Extract(text string, requested []string) (*ChannelTable, error) {
	return NewExtractor(nil).Extract(Document{Text: text}, requested)
}

type resolved struct {
	name   string
	offset int
}

// Extract reads doc and returns the samples of every requested channel that
// the document declares. Missing channels, trailing literals and short
// columns are reported as warnings; the call fails only when a section is
// missing, nothing resolves, or no complete row exists.
func (e *Extractor) Extract(doc Document, requested []string) (*ChannelTable, error) {
	table := &ChannelTable{Document: doc.ID}

	info, err := InfoSection(doc.Text)
	if err != nil {
		return nil, e.fail(doc, err)
	}
	declared, err := DeclaredChannels(info)
	if err != nil {
		return nil, e.fail(doc, err)
	}
	table.Declared = declared

	// First declaration wins for repeated names.
	offsets := make(map[string]int, len(declared))
	for i, name := range declared {
		if _, dup := offsets[name]; !dup {
			offsets[name] = i
		}
	}

	var cols []resolved
	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		if seen[name] {
			continue
		}
		seen[name] = true
		idx, ok := offsets[name]
		if !ok {
			e.warn(table, Warning{
				Kind:     WarnMissingChannel,
				Document: doc.ID,
				Channel:  name,
				Message:  fmt.Sprintf("channel %q not declared", name),
			})
			continue
		}
		cols = append(cols, resolved{name: name, offset: idx})
	}
	if len(cols) == 0 {
		return nil, e.fail(doc, ErrNoChannelsResolved)
	}

	data, err := DataSection(doc.Text)
	if err != nil {
		return nil, e.fail(doc, err)
	}
	stream := ScanLiterals(data)

	stride := len(declared)
	rows := len(stream) / stride
	if rows == 0 {
		return nil, e.fail(doc, ErrEmptyDataBlock)
	}
	if extra := len(stream) - rows*stride; extra > 0 {
		e.warn(table, Warning{
			Kind:     WarnTrailingLiterals,
			Document: doc.ID,
			Count:    extra,
			Message:  fmt.Sprintf("discarded %d trailing literals (%d literals, %d channels)", extra, len(stream), stride),
		})
	}

	table.Rows = rows
	table.Columns = make(map[string][]float64, len(cols))
	for _, c := range cols {
		values, complete := gather(stream, stride, c.offset, rows)
		if !complete {
			e.warn(table, Warning{
				Kind:     WarnIndexOutOfRange,
				Document: doc.ID,
				Channel:  c.name,
				Count:    len(values),
				Message:  fmt.Sprintf("channel %q truncated at row %d", c.name, len(values)),
			})
		}
		table.Columns[c.name] = values
		table.Order = append(table.Order, c.name)
	}

	return table, nil
}

// gather takes every stride-th literal starting at offset, for up to rows
// rows. It stops at the end of stream and then reports false. Extract only
// asks for complete rows, so a short result means stream and rows disagree.
func gather(stream []float64, stride, offset, rows int) ([]float64, bool) {
	values := make([]float64, 0, rows)
	for row := 0; row < rows; row++ {
		i := row*stride + offset
		if i >= len(stream) {
			return values, false
		}
		values = append(values, stream[i])
	}
	return values, true
}

func (e *Extractor) warn(t *ChannelTable, w Warning) {
	t.Warnings = append(t.Warnings, w)
	kv := []interface{}{"msg", w.Message, "kind", string(w.Kind)}
	if w.Document != "" {
		kv = append(kv, "document", w.Document)
	}
	if w.Channel != "" {
		kv = append(kv, "channel", w.Channel)
	}
	level.Warn(e.logger).Log(kv...)
}

func (e *Extractor) fail(doc Document, err error) error {
	return &ExtractError{Document: doc.ID, Err: err}
}
