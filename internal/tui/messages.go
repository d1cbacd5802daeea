package tui

// RowUpdateMsg updates a single row's fields by column name. Rows that do
// not exist yet are appended in arrival order.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// BatchProgressMsg reports how far a download batch has come. Percent is
// in [0, 1].
type BatchProgressMsg struct {
	Key     string
	Percent float64
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
