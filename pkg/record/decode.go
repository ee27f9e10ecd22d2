package record

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrBadPayload - тело не является JSON-массивом записей или одной записью
var ErrBadPayload = errors.New("payload is not a JSON array of records")

// DecodeBatch читает JSON-массив объектов по одной записи за раз,
// либо одиночный объект (пакет из одной записи). Числа остаются float64.
// Ошибки чтения из r доступны через errors.As.
func DecodeBatch(r io.Reader) (Batch, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty body", ErrBadPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}

	dec := json.NewDecoder(br)

	switch first {
	case '{':
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		if err := expectEOF(dec); err != nil {
			return nil, err
		}
		return Batch{rec}, nil

	case '[':
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		batch := Batch{}
		for dec.More() {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				return nil, fmt.Errorf("%w: element %d: %w", ErrBadPayload, len(batch), err)
			}
			if rec == nil {
				return nil, fmt.Errorf("%w: element %d is null", ErrBadPayload, len(batch))
			}
			batch = append(batch, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		if err := expectEOF(dec); err != nil {
			return nil, err
		}
		return batch, nil

	default:
		return nil, ErrBadPayload
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON value", ErrBadPayload)
	}
	return nil
}
