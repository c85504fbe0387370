// Package midi defines timestamped control events and the lock-free
// queue that carries them from control goroutines to the processing
// goroutine.
package midi

import (
	"fmt"
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind is the kind of event.
type Kind uint8

const (
	// NoteOn starts a note. Value is velocity in [0, 1].
	NoteOn Kind = iota + 1
	// NoteOff releases a note.
	NoteOff
	// ControlChange sets controller Key to Value in [0, 1].
	ControlChange
	// PitchBend moves the pitch wheel to Value in [-1, 1]. Zero is the
	// center position.
	PitchBend
)

// Controller numbers with special meaning.
const (
	CCModulation  uint8 = 1
	CCVolume      uint8 = 7
	CCSustain     uint8 = 64
	CCEffects     uint8 = 91
	CCAllSoundOff uint8 = 120
	CCResetAll    uint8 = 121
	CCAllNotesOff uint8 = 123
)

// Event is a control event. Offset is the sample position within the
// block it is delivered in.
type Event struct {
	Kind    Kind
	Channel uint8
	Key     uint8
	Value   float64
	Offset  int
}

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note on"
	case NoteOff:
		return "note off"
	case ControlChange:
		return "control change"
	case PitchBend:
		return "pitch bend"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (e Event) String() string {
	return fmt.Sprintf("%v ch=%d key=%d value=%.3f offset=%d", e.Kind, e.Channel, e.Key, e.Value, e.Offset)
}

// FromMessage converts a channel message to event at provided offset.
// It returns false for messages that have no event representation.
func FromMessage(msg gomidi.Message, offset int) (Event, bool) {
	var (
		ch, key, val uint8
		bend         int16
	)
	switch {
	case msg.GetNoteStart(&ch, &key, &val):
		return Event{Kind: NoteOn, Channel: ch, Key: key, Value: float64(val) / 127, Offset: offset}, true
	case msg.GetNoteEnd(&ch, &key):
		return Event{Kind: NoteOff, Channel: ch, Key: key, Offset: offset}, true
	case msg.GetControlChange(&ch, &key, &val):
		return Event{Kind: ControlChange, Channel: ch, Key: key, Value: float64(val) / 127, Offset: offset}, true
	case msg.GetPitchBend(&ch, &bend, nil):
		return Event{Kind: PitchBend, Channel: ch, Value: bendValue(bend), Offset: offset}, true
	}
	return Event{}, false
}

// Message converts event to channel message. Offset is not encoded.
func (e Event) Message() gomidi.Message {
	switch e.Kind {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Key, byteValue(e.Value))
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Key)
	case ControlChange:
		return gomidi.ControlChange(e.Channel, e.Key, byteValue(e.Value))
	case PitchBend:
		return gomidi.Pitchbend(e.Channel, wheelValue(e.Value))
	}
	return nil
}

// bendValue scales the wheel so both extremes map to -1 and 1.
func bendValue(v int16) float64 {
	if v >= 0 {
		return float64(v) / gomidi.PitchHighest
	}
	return -float64(v) / gomidi.PitchLowest
}

func wheelValue(v float64) int16 {
	switch {
	case v >= 1:
		return gomidi.PitchHighest
	case v <= -1:
		return gomidi.PitchLowest
	case v >= 0:
		return int16(math.Round(v * gomidi.PitchHighest))
	}
	return int16(math.Round(-v * gomidi.PitchLowest))
}

func byteValue(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 127
	}
	return uint8(math.Round(v * 127))
}
