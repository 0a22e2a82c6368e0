package frame

import "fmt"

// Record is one entry of a DATA_LIST body.
type Record struct {
	DeviceID uint8
	Payload  []byte
}

// listSeqID is the sequence id assigned to messages expanded from a DATA_LIST.
const listSeqID uint8 = 1

// SplitList expands a DATA_LIST message into DATA messages, one per record.
//
// Each record is (deviceID, length, payload[length]). A truncated trailing
// record yields a message with the bytes that are present and ends the list.
// Returned bodies reference msg.Body.
func SplitList(msg *Message) []*Message {
	body := msg.Body
	msgs := make([]*Message, 0, len(body)/3)

	for i := 0; i+1 < len(body); {
		deviceID := body[i]
		length := int(body[i+1])
		start := i + 2
		end := min(start+length, len(body))

		msgs = append(msgs, NewMessage(listSeqID, TypeData, deviceID, body[start:end:end]))
		i = end
	}

	return msgs
}

// BuildList encodes records as a DATA_LIST body.
func BuildList(records ...Record) ([]byte, error) {
	size := 0
	for i, r := range records {
		if len(r.Payload) > 0xFF {
			return nil, fmt.Errorf("%w: record %d has %d bytes", ErrRecordTooLarge, i, len(r.Payload))
		}
		size += 2 + len(r.Payload)
	}

	body := make([]byte, 0, size)
	for _, r := range records {
		body = append(body, r.DeviceID, byte(len(r.Payload)))
		body = append(body, r.Payload...)
	}

	return body, nil
}
