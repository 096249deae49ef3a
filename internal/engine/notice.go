package engine

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	NoticeCountdown NoticeKind = iota
	NoticeStarted
	NoticeJudged
	NoticeAutoSubmitted
	NoticeFinished
	NoticeHighScore
	NoticeError
)

// Notice is a user-facing event raised while processing session events.
type Notice struct {
	Kind      NoticeKind
	LineIndex int
	Message   string
}
