package wizard

// Step is a wizard state.
type Step int

const (
	StepStyleSelect Step = iota + 1
	StepFacialEdit
	StepBodyEdit
	StepDownload
)

func (s Step) String() string {
	switch s {
	case StepStyleSelect:
		return "style_select"
	case StepFacialEdit:
		return "facial_edit"
	case StepBodyEdit:
		return "body_edit"
	case StepDownload:
		return "download"
	default:
		return "unknown"
	}
}
