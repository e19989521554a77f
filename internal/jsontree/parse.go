package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxDepth bounds container nesting when no explicit limit is given.
const DefaultMaxDepth = 512

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("invalid json document")

	// ErrDepthExceeded is returned when a document nests deeper than the configured limit.
	ErrDepthExceeded = errors.New("maximum json nesting depth exceeded")
)

// ParseError reports a document that is not valid JSON.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("json parse error at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Parse decodes a complete JSON document. maxDepth <= 0 selects DefaultMaxDepth.
func Parse(data []byte, maxDepth int) (*Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	p := &parser{dec: dec, maxDepth: maxDepth}

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Offset: 0, Err: errors.New("empty document")}
		}
		return nil, p.wrap(err)
	}

	root, err := p.value(tok, 1)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, p.wrap(err)
	}

	return root, nil
}

type parser struct {
	dec      *json.Decoder
	maxDepth int
}

func (p *parser) wrap(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) || errors.Is(err, ErrDepthExceeded) {
		return err
	}
	return &ParseError{Offset: p.dec.InputOffset(), Err: err}
}

func (p *parser) value(tok json.Token, depth int) (*Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		if depth > p.maxDepth {
			return nil, fmt.Errorf("%w: limit %d at offset %d", ErrDepthExceeded, p.maxDepth, p.dec.InputOffset())
		}
		switch v {
		case '{':
			return p.object(depth)
		case '[':
			return p.array(depth)
		default:
			return nil, p.wrap(fmt.Errorf("unexpected delimiter %q", rune(v)))
		}
	case string:
		return NewString(v), nil
	case json.Number:
		return NewNumber(v), nil
	case bool:
		return NewBool(v), nil
	case nil:
		return NewNull(), nil
	default:
		return nil, p.wrap(fmt.Errorf("unexpected token %T", tok))
	}
}

func (p *parser) object(depth int) (*Node, error) {
	members := make([]Member, 0)
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, p.wrap(err)
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return NewObject(members...), nil
		}

		key, ok := tok.(string)
		if !ok {
			return nil, p.wrap(fmt.Errorf("object key is %T, not string", tok))
		}

		tok, err = p.dec.Token()
		if err != nil {
			return nil, p.wrap(err)
		}
		val, err := p.value(tok, depth+1)
		if err != nil {
			return nil, err
		}
		members = append(members, Member{Key: key, Value: val})
	}
}

func (p *parser) array(depth int) (*Node, error) {
	items := make([]*Node, 0)
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, p.wrap(err)
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return NewArray(items...), nil
		}

		val, err := p.value(tok, depth+1)
		if err != nil {
			return nil, err
		}
		items = append(items, val)
	}
}
