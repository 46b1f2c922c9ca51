// Package homework holds the domain of the review tracker: the payload returned
// by the review API, the tracked homework records inside it, the fixed verdict
// lookup and the error taxonomy shared by the gateway and the poll loop.
package homework

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Review statuses known to the verdict lookup.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

// ItemsKey is the payload key holding the list of tracked homeworks.
const ItemsKey = "homeworks"

var verdicts = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the human-readable sentence for a status key.
func Verdict(status string) (string, bool) {
	v, ok := verdicts[status]
	return v, ok
}

// Payload is a syntactically valid JSON document returned by the review API.
// Its shape is not checked until Validate.
type Payload jx.Raw

// ParsePayload checks that b holds exactly one JSON value.
func ParsePayload(b []byte) (Payload, error) {
	d := jx.DecodeBytes(b)
	if err := d.Skip(); err != nil {
		return nil, Wrap(KindMalformedPayload, err, MsgMalformed)
	}
	if d.Next() != jx.Invalid {
		return nil, Wrap(KindMalformedPayload, errors.New("unexpected trailing data"), MsgMalformed)
	}
	return Payload(append([]byte(nil), b...)), nil
}

// Homework is one tracked submission as returned by the API. Its fields are
// decoded lazily by Describe.
type Homework struct {
	raw jx.Raw
}

// HomeworkFromJSON wraps a raw JSON element.
func HomeworkFromJSON(raw []byte) Homework { return Homework{raw: jx.Raw(raw)} }

// Raw returns the element as received.
func (h Homework) Raw() jx.Raw { return h.raw }

// Validate enforces the payload shape and extracts the tracked homeworks.
// Elements are returned unchanged; their fields are only read by Describe.
func Validate(p Payload) ([]Homework, error) {
	d := jx.DecodeBytes(p)
	if d.Next() != jx.Object {
		return nil, New(KindUnexpectedShape, MsgNotMapping)
	}

	var (
		found bool
		items []Homework
		shape *Error
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != ItemsKey || found {
			return d.Skip()
		}
		found = true
		if d.Next() != jx.Array {
			shape = New(KindUnexpectedShape, MsgNotList)
			return d.Skip()
		}
		items = make([]Homework, 0)
		return d.Arr(func(d *jx.Decoder) error {
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			items = append(items, Homework{raw: append(jx.Raw(nil), bytes.TrimSpace(raw)...)})
			return nil
		})
	})
	if err != nil {
		return nil, Wrap(KindMalformedPayload, err, MsgMalformed)
	}
	if !found {
		return nil, New(KindUnexpectedShape, MsgMissingKey)
	}
	if shape != nil {
		return nil, shape
	}
	return items, nil
}

// Describe maps one homework to the status-change message. A missing name is
// rendered empty; a missing or unknown status is an UnknownStatus error.
func Describe(h Homework) (string, error) {
	name, status, err := fields(h)
	if err != nil {
		return "", err
	}
	verdict, ok := Verdict(status)
	if !ok {
		return "", New(KindUnknownStatus, fmt.Sprintf(MsgUnknownStatusF, status))
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", name, verdict), nil
}

func fields(h Homework) (name, status string, _ error) {
	if h.raw.Type() != jx.Object {
		return "", "", New(KindUnexpectedShape, MsgNotObjectItem)
	}
	d := jx.DecodeBytes(h.raw)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "homework_name":
			v, err := scalar(d)
			name = v
			return err
		case "status":
			v, err := scalar(d)
			status = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return "", "", Wrap(KindMalformedPayload, err, MsgMalformed)
	}
	return name, status, nil
}

// scalar reads a string as-is; null becomes empty and any other value keeps
// its JSON text.
func scalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	default:
		raw, err := d.Raw()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(raw.String()), nil
	}
}
