package tasks

// Msg is an input to the controller loop.
type Msg interface{ isMsg() }

type FilterChanged struct{ Filter Filter }

type SortChanged struct{ Sort Sort }

// TaskSubmitted carries the raw form values. Whether it creates or updates
// depends on the form state.
type TaskSubmitted struct {
	Title       string
	Description string
	DueDate     string
}

type TaskToggled struct {
	ID        string
	Completed bool
}

type TaskDeleted struct {
	ID        string
	Confirmed bool
}

type RealtimeNotified struct{}

type EditStarted struct{ ID string }

type EditCancelled struct{}

// Reload re-fetches the list with the current view state.
type Reload struct{}

func (FilterChanged) isMsg()    {}
func (SortChanged) isMsg()      {}
func (TaskSubmitted) isMsg()    {}
func (TaskToggled) isMsg()      {}
func (TaskDeleted) isMsg()      {}
func (RealtimeNotified) isMsg() {}
func (EditStarted) isMsg()      {}
func (EditCancelled) isMsg()    {}
func (Reload) isMsg()           {}
