package randomness

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// SettledEventDiscriminator is the Anchor event discriminator,
// sha256("event:SimpleRandomnessV1SettledEvent")[..8].
var SettledEventDiscriminator = [8]byte{185, 253, 253, 64, 75, 227, 202, 173}

// SimpleRandomnessV1SettledEvent is emitted by the service once the oracle's
// fulfillment transaction lands and the callback has been invoked.
type SimpleRandomnessV1SettledEvent struct {
	Request     solana.PublicKey
	User        solana.PublicKey
	IsSuccess   bool
	Randomness  []byte
	RequestSlot uint64
	SettledSlot uint64
}

// Latency is the number of slots between request creation and settlement.
// The service guarantees SettledSlot >= RequestSlot.
func (e *SimpleRandomnessV1SettledEvent) Latency() uint64 {
	return e.SettledSlot - e.RequestSlot
}

const programDataPrefix = "Program data: "

// ParseSettledEvents scans transaction log messages for settled events. Log
// lines that are not Anchor event emissions, fail to decode, or carry a
// different event discriminator are skipped.
func ParseSettledEvents(logs []string) []*SimpleRandomnessV1SettledEvent {
	events := make([]*SimpleRandomnessV1SettledEvent, 0)

	for _, line := range logs {
		idx := strings.Index(line, programDataPrefix)
		if idx < 0 {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(line[idx+len(programDataPrefix):])
		if err != nil {
			continue
		}

		if len(raw) < len(SettledEventDiscriminator) || !bytes.Equal(raw[:8], SettledEventDiscriminator[:]) {
			continue
		}

		event := new(SimpleRandomnessV1SettledEvent)
		if err := decodeBorsh(raw[8:], event); err != nil {
			continue
		}

		events = append(events, event)
	}

	return events
}
