package bookstack

import "fmt"

// Error wraps an underlying error with operation context.
// Err is always a coded error from internal/errors.
type Error struct {
	Op   string // Operation: "listBooks", "getChapter", "createPage", ...
	Side Side
	ID   int64 // Entity id, if applicable
	Err  error
}

func (e *Error) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("bookstack %s [%s/%d]: %v", e.Op, e.Side, e.ID, e.Err)
	}
	return fmt.Sprintf("bookstack %s [%s]: %v", e.Op, e.Side, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (c *Client) wrapError(op string, id int64, err error) error {
	return &Error{
		Op:   op,
		Side: c.side,
		ID:   id,
		Err:  err,
	}
}
