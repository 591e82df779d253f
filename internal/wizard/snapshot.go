package wizard

import (
	"time"

	"caricagen/internal/domain"
)

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID                 string    `json:"id"`
	Step               Step      `json:"step"`
	StepName           string    `json:"step_name"`
	Style              string    `json:"style,omitempty"`
	Ratio              string    `json:"ratio,omitempty"`
	Width              int       `json:"width,omitempty"`
	Height             int       `json:"height,omitempty"`
	Image              string    `json:"image,omitempty"`
	HasOriginal        bool      `json:"has_original"`
	HasFacial          bool      `json:"has_facial"`
	HasBody            bool      `json:"has_body"`
	FacialExaggeration int       `json:"facial_exaggeration"`
	FacialLabel        string    `json:"facial_exaggeration_label"`
	FacialPrompt       string    `json:"facial_prompt,omitempty"`
	BodyExaggeration   int       `json:"body_exaggeration"`
	BodyLabel          string    `json:"body_exaggeration_label"`
	BodyPrompt         string    `json:"body_prompt,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:                 s.id,
		Step:               s.step,
		StepName:           s.step.String(),
		Style:              string(s.style),
		Ratio:              s.ratio,
		Width:              s.width,
		Height:             s.height,
		Image:              s.displayLocked(),
		HasOriginal:        s.original != "",
		HasFacial:          s.facial != "",
		HasBody:            s.body != "",
		FacialExaggeration: s.facialExaggeration,
		FacialLabel:        domain.ExaggerationLabel(s.facialExaggeration),
		FacialPrompt:       s.facialPrompt,
		BodyExaggeration:   s.bodyExaggeration,
		BodyLabel:          domain.ExaggerationLabel(s.bodyExaggeration),
		BodyPrompt:         s.bodyPrompt,
		UpdatedAt:          s.updatedAt,
	}
}
