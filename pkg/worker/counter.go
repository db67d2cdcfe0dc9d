package worker

// Counter hands out consecutive ids. It is stored with the entity that owns
// the sequence, so a reloaded tree keeps allocating where it stopped.
type Counter struct {
	Initial int `json:"initial"`
	Value   int `json:"value"`
}

func NewCounter(initial int) Counter {
	return Counter{Initial: initial, Value: initial}
}

// Next returns the current value and advances the counter.
func (c *Counter) Next() int {
	id := c.Value
	c.Value++
	return id
}

func (c *Counter) Reset() {
	c.Value = c.Initial
}
