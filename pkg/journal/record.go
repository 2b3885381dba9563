package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/protocol"
)

// Batch encoding errors.
var (
	ErrBadMagic   = errors.New("journal: not a journal batch")
	ErrBadVersion = errors.New("journal: unsupported batch version")
)

const (
	batchMagic   = "KJN"
	batchVersion = 1
)

// Record is one observed pass.
type Record struct {
	// Seq numbers records within a journal, starting at 1.
	Seq  uint64
	Time time.Time
	Kind nested.PassKind

	// Target is the identifier the pass was addressed to.
	Target component.Identifier

	// EventType and Event are set for dispatch records.
	EventType dom.EventType
	Event     dom.Event

	// Changed is the reported index list; Reported is false when the
	// component reported no change.
	Changed  []int
	Reported bool

	// Followup marks propagation drained right after another pass.
	Followup bool

	// Scopes are the renders the pass issued.
	Scopes []component.RenderType

	// Err is the error text of a failed pass, empty on success.
	Err string
}

// FromPass converts an observed pass into a record.
func FromPass(seq uint64, info nested.PassInfo) Record {
	r := Record{
		Seq:       seq,
		Time:      info.Start,
		Kind:      info.Kind,
		Target:    info.Target,
		EventType: info.EventType,
		Event:     info.Event,
		Changed:   append([]int(nil), info.Changed...),
		Reported:  info.Reported,
		Followup:  info.Followup,
		Scopes:    append([]component.RenderType(nil), info.Scopes...),
	}
	if info.Err != nil {
		r.Err = info.Err.Error()
	}
	return r
}

// Failed reports whether the recorded pass returned an error.
func (r Record) Failed() bool {
	return r.Err != ""
}

// String summarizes the record, e.g. "3 dispatch Click /0/1 [Partial(2)]".
func (r Record) String() string {
	head := fmt.Sprintf("%d %s", r.Seq, r.Kind)
	if r.Kind == nested.PassDispatch {
		head += " " + r.EventType.String()
	}
	return fmt.Sprintf("%s %s %v", head, r.Target, r.Scopes)
}

// EncodeBatch encodes records as one batch.
//
//	[Magic "KJN"][Version: 1 byte][Count: varint][Record...]
//
// Each record:
//
//	[Seq: varint][UnixNano: svarint][Kind: 1 byte][Flags: 1 byte]
//	[Target: path][Changed: varint count, svarint...]
//	dispatch only: [Type: 1 byte][payload by type]
//	[Scopes: varint count, scope...][Err: string]
func EncodeBatch(records []Record) ([]byte, error) {
	e := protocol.NewEncoder()
	e.WriteBytes([]byte(batchMagic))
	e.WriteByte(batchVersion)
	e.WriteUvarint(uint64(len(records)))
	for i := range records {
		if err := encodeRecord(e, &records[i]); err != nil {
			return nil, fmt.Errorf("journal: record %d: %w", records[i].Seq, err)
		}
	}
	return e.Bytes(), nil
}

const (
	flagReported byte = 1 << iota
	flagFollowup
)

func encodeRecord(e *protocol.Encoder, r *Record) error {
	e.WriteUvarint(r.Seq)
	e.WriteSvarint(r.Time.UnixNano())
	e.WriteByte(byte(r.Kind))

	var flags byte
	if r.Reported {
		flags |= flagReported
	}
	if r.Followup {
		flags |= flagFollowup
	}
	e.WriteByte(flags)

	e.WritePath(r.Target.Path())
	e.WriteUvarint(uint64(len(r.Changed)))
	for _, i := range r.Changed {
		e.WriteSvarint(int64(i))
	}

	if r.Kind == nested.PassDispatch {
		e.WriteByte(byte(r.EventType))
		if err := protocol.EncodeEventPayload(e, r.EventType, r.Event); err != nil {
			return err
		}
	}

	e.WriteUvarint(uint64(len(r.Scopes)))
	for _, rt := range r.Scopes {
		protocol.EncodeScope(e, rt)
	}
	e.WriteString(r.Err)
	return nil
}

// DecodeBatch decodes a batch written by EncodeBatch.
func DecodeBatch(data []byte) ([]Record, error) {
	if len(data) < len(batchMagic)+1 || string(data[:len(batchMagic)]) != batchMagic {
		return nil, ErrBadMagic
	}
	if data[len(batchMagic)] != batchVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, data[len(batchMagic)])
	}

	d := protocol.NewDecoder(data[len(batchMagic)+1:])
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		r, err := decodeRecord(d)
		if err != nil {
			return nil, fmt.Errorf("journal: record %d of batch: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeRecord(d *protocol.Decoder) (Record, error) {
	var r Record
	var err error

	if r.Seq, err = d.ReadUvarint(); err != nil {
		return r, err
	}
	nanos, err := d.ReadSvarint()
	if err != nil {
		return r, err
	}
	r.Time = time.Unix(0, nanos)

	kind, err := d.ReadByte()
	if err != nil {
		return r, err
	}
	r.Kind = nested.PassKind(kind)

	flags, err := d.ReadByte()
	if err != nil {
		return r, err
	}
	r.Reported = flags&flagReported != 0
	r.Followup = flags&flagFollowup != 0

	target, err := d.ReadPath()
	if err != nil {
		return r, err
	}
	r.Target = component.NewIdentifier(target...)
	if r.Changed, err = readIndices(d); err != nil {
		return r, err
	}

	if r.Kind == nested.PassDispatch {
		b, err := d.ReadByte()
		if err != nil {
			return r, err
		}
		r.EventType = dom.EventType(b)
		if !r.EventType.Valid() {
			return r, fmt.Errorf("%w: 0x%02x", protocol.ErrUnknownEventType, b)
		}
		if r.Event, err = protocol.DecodeEventPayload(d, r.EventType); err != nil {
			return r, err
		}
	}

	n, err := d.ReadCollectionCount()
	if err != nil {
		return r, err
	}
	for i := 0; i < n; i++ {
		rt, err := protocol.DecodeScope(d)
		if err != nil {
			return r, err
		}
		r.Scopes = append(r.Scopes, rt)
	}
	if r.Err, err = d.ReadString(); err != nil {
		return r, err
	}
	return r, nil
}

// readIndices reads a changed-index list. Unlike a path it may be long
// and may hold the invalid indices a component reported.
func readIndices(d *protocol.Decoder) ([]int, error) {
	n, err := d.ReadCollectionCount()
	if err != nil || n == 0 {
		return nil, err
	}
	indices := make([]int, n)
	for i := range indices {
		v, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		indices[i] = int(v)
	}
	return indices, nil
}
