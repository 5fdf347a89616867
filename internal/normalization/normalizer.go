// Package normalization converts upstream JSON documents into flat records.
package normalization

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

var (
	// ErrNoValidData is returned when none of the inputs held usable data.
	ErrNoValidData = errors.New("no valid data found in any input")
	// ErrUnexpectedShape is returned when a document has the wrong top-level type.
	ErrUnexpectedShape = errors.New("unexpected document shape")
)

// Document is one raw JSON payload with the name used in log lines.
type Document struct {
	Name string // file path or key
	Key  string // token id, slug or chain the payload is about
	Body []byte
}

// Normalizer holds the clock and logger shared by all normalizers.
type Normalizer struct {
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the clock used for the timestamp column.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// WithLogger sets the logger used for skipped inputs.
func WithLogger(l zerolog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = l
	}
}

// New creates a normalizer with the wall clock and a no-op logger.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:    func() time.Time { return time.Now().UTC() },
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Now returns the normalizer clock's current time in UTC.
func (n *Normalizer) Now() time.Time {
	return n.now().UTC()
}

func parse(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrUnexpectedShape)
	}
	return gjson.ParseBytes(body), nil
}
