package poly

// schedule is a fixed capacity queue ordered by offset. Entries with
// equal offsets keep the order of insertion.
type schedule[T any] struct {
	entries []entry[T]
	head    int
	tail    int
}

type entry[T any] struct {
	at int
	v  T
}

func newSchedule[T any](capacity int) schedule[T] {
	return schedule[T]{entries: make([]entry[T], capacity)}
}

func (s *schedule[T]) len() int {
	return s.tail - s.head
}

// push inserts v at offset. It returns false if the schedule is full.
func (s *schedule[T]) push(v T, at int) bool {
	if s.tail == len(s.entries) {
		if s.head == 0 {
			return false
		}
		s.compact()
	}
	i := s.tail
	for i > s.head && s.entries[i-1].at > at {
		s.entries[i] = s.entries[i-1]
		i--
	}
	s.entries[i] = entry[T]{at: at, v: v}
	s.tail++
	return true
}

// peek returns the earliest entry.
func (s *schedule[T]) peek() (T, int, bool) {
	if s.head == s.tail {
		var zero T
		return zero, 0, false
	}
	e := s.entries[s.head]
	return e.v, e.at, true
}

func (s *schedule[T]) pop() {
	if s.head < s.tail {
		s.head++
	}
	if s.head == s.tail {
		s.head, s.tail = 0, 0
	}
}

// advance moves remaining entries n samples earlier. Entries never move
// before zero.
func (s *schedule[T]) advance(n int) {
	for i := s.head; i < s.tail; i++ {
		s.entries[i].at = max(s.entries[i].at-n, 0)
	}
}

func (s *schedule[T]) compact() {
	copy(s.entries, s.entries[s.head:s.tail])
	s.tail -= s.head
	s.head = 0
}

func (s *schedule[T]) clear() {
	s.head, s.tail = 0, 0
}
