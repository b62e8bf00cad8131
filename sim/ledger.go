package sim

// Client is one demand that could not be served on arrival.
type Client struct {
	ID    uint64
	Class int
	Since float64 // arrival instant
}

// Ledger queues waiting clients and hands them out oldest first.
// It holds no timing; pending events live in an EventQueue.
type Ledger struct {
	waiting []Client
	nextID  uint64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add records a waiting client of class that arrived at since.
func (l *Ledger) Add(class int, since float64) Client {
	l.nextID++
	c := Client{ID: l.nextID, Class: class, Since: since}
	l.waiting = append(l.waiting, c)
	return c
}

// PopOldest removes and returns the longest-waiting client.
func (l *Ledger) PopOldest() (Client, bool) {
	if len(l.waiting) == 0 {
		return Client{}, false
	}
	c := l.waiting[0]
	l.waiting = l.waiting[1:]
	return c, true
}

// Len returns the number of waiting clients.
func (l *Ledger) Len() int {
	return len(l.waiting)
}
