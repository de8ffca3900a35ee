package models

// Status names the state a session's round trip is in.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

// GenericErrorMessage is the only failure text shown to users. Invalid
// labels, transport failures and unparseable data all surface as this.
const GenericErrorMessage = "Something went terribly wrong!"

// RequestResult is the state of a session. Exactly one of Idle, Loading,
// Failed or Succeeded holds at a time.
type RequestResult interface {
	Status() Status
	// RequestID is the submission that produced this state; zero for Idle.
	RequestID() uint64
	isRequestResult()
}

type Idle struct{}

func (Idle) Status() Status    { return StatusIdle }
func (Idle) RequestID() uint64 { return 0 }
func (Idle) isRequestResult()  {}

type Loading struct {
	ID uint64
}

func (l Loading) Status() Status    { return StatusLoading }
func (l Loading) RequestID() uint64 { return l.ID }
func (Loading) isRequestResult()    {}

// Failed carries no chart type or data: there is no partial success.
type Failed struct {
	ID uint64
}

func (f Failed) Status() Status    { return StatusError }
func (f Failed) RequestID() uint64 { return f.ID }
func (Failed) isRequestResult()    {}

type Succeeded struct {
	ID        uint64
	ChartType ChartType
	Data      []ChartDataPoint
}

func (s Succeeded) Status() Status    { return StatusSuccess }
func (s Succeeded) RequestID() uint64 { return s.ID }
func (Succeeded) isRequestResult()    {}

// ResultView is the wire form of a RequestResult.
type ResultView struct {
	Status    Status           `json:"status"`
	RequestID uint64           `json:"request_id,omitempty"`
	ChartType ChartType        `json:"chart_type,omitempty"`
	Data      []ChartDataPoint `json:"data"`
	Error     string           `json:"error,omitempty"`
}

func NewResultView(r RequestResult) ResultView {
	view := ResultView{Status: r.Status(), RequestID: r.RequestID()}
	switch v := r.(type) {
	case Failed:
		view.Error = GenericErrorMessage
	case Succeeded:
		view.ChartType = v.ChartType
		view.Data = v.Data
		if view.Data == nil {
			view.Data = []ChartDataPoint{}
		}
	}
	return view
}
