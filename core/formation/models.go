package formation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Formation is a training course proposed by a trainer. (Name, Year) is
// unique; re-proposing the same name within a calendar year is rejected.
type Formation struct {
	ID        string    `json:"id"`
	TrainerID string    `json:"trainerId"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"createdAt"` // UTC
}

// NewFormation is the proposal payload.
type NewFormation struct {
	TrainerID string `json:"trainerId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Year      int    `json:"year" validate:"required,min=2000"`
}

func (nf *NewFormation) clean() {
	nf.TrainerID = core.CleanString(nf.TrainerID)
	nf.Name = core.CleanString(nf.Name)
}

func (nf *NewFormation) Validate(validate *validator.Validate) error {
	nf.clean()
	return validate.Struct(nf)
}
