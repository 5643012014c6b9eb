package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a registered clinic patient. It is also the wire shape of the
// read endpoints; UpdatedAt stays internal.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Age              int        `db:"age" json:"age"`
	Gender           string     `db:"gender" json:"gender"`
	Phone            string     `db:"phone" json:"phone"`
	Email            string     `db:"email" json:"email"`
	Address          string     `db:"address" json:"address"`
	EmergencyContact string     `db:"emergency_contact" json:"emergencyContact"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        *time.Time `db:"updated_at" json:"-"`
}

// CreateRequest is the body of POST /patients.
type CreateRequest struct {
	Name             string `json:"name" validate:"required,max=100"`
	Age              int    `json:"age" validate:"min=1,max=120"`
	Gender           string `json:"gender" validate:"required,max=10"`
	Phone            string `json:"phone" validate:"required,max=20"`
	Email            string `json:"email" validate:"required,email,max=100"`
	Address          string `json:"address" validate:"required,max=500"`
	EmergencyContact string `json:"emergencyContact" validate:"required,max=200"`
}

// UpdateRequest is the body of PUT /patients/:id. Every mutable field is
// overwritten.
type UpdateRequest CreateRequest

func (r CreateRequest) apply(p *Patient) {
	p.Name = r.Name
	p.Age = r.Age
	p.Gender = r.Gender
	p.Phone = r.Phone
	p.Email = r.Email
	p.Address = r.Address
	p.EmergencyContact = r.EmergencyContact
}
