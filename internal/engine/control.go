package engine

// Control is a named input-surface command.
type Control int

const (
	ControlSubmit Control = iota
	ControlClear
	ControlPause
	ControlResume
	ControlTogglePause
	ControlStart
	ControlReplay
	ControlQuit
)

// OnControl dispatches a control event. Start errors are reported as notices.
func (s *Synchronizer) OnControl(c Control) {
	switch c {
	case ControlSubmit:
		s.Submit()
	case ControlClear:
		s.ClearInput()
	case ControlPause:
		s.Pause()
	case ControlResume:
		s.Resume()
	case ControlTogglePause:
		s.TogglePause()
	case ControlStart:
		if err := s.Start(); err != nil {
			s.mu.Lock()
			s.noticeLocked(NoticeError, -1, err.Error())
			s.mu.Unlock()
		}
	case ControlReplay:
		s.Replay()
	case ControlQuit:
		s.Abort()
	}
}
