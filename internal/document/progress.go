package document

// Stage is the phase a progress event belongs to.
type Stage string

const (
	StageLoading Stage = "loading"
	StageParsing Stage = "parsing"
	StageOCR     Stage = "ocr"
	StageDone    Stage = "done"
)

// ProgressEvent reports extraction progress. It never affects control flow.
type ProgressEvent struct {
	Stage      Stage  `json:"stage"`
	Page       int    `json:"page,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
	Percent    int    `json:"percent"`
	Message    string `json:"message,omitempty"`
}

// ProgressFunc receives progress events. A nil ProgressFunc discards them.
type ProgressFunc func(ProgressEvent)

// Emit sends ev to f, clamping Percent to [0,100].
func (f ProgressFunc) Emit(ev ProgressEvent) {
	if f == nil {
		return
	}
	if ev.Percent < 0 {
		ev.Percent = 0
	}
	if ev.Percent > 100 {
		ev.Percent = 100
	}
	f(ev)
}

// ChanSink adapts a channel to a ProgressFunc. Sends never block: when the
// consumer falls behind, events are dropped.
func ChanSink(ch chan<- ProgressEvent) ProgressFunc {
	return func(ev ProgressEvent) {
		select {
		case ch <- ev:
		default:
		}
	}
}
