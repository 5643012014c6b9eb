package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medconsult/medconsult/internal/domain/consultation"
	"github.com/medconsult/medconsult/internal/domain/patient"
)

type patientSeeder interface {
	List(ctx context.Context) ([]*patient.Patient, error)
	Create(ctx context.Context, req patient.CreateRequest) (*patient.Patient, error)
}

type consultationSeeder interface {
	Create(ctx context.Context, in consultation.NewConsultation) (*consultation.Consultation, []consultation.SkippedAttachment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

var samplePatients = []patient.CreateRequest{
	{
		Name:             "John Smith",
		Age:              35,
		Gender:           "Male",
		Phone:            "+1-555-0123",
		Email:            "john.smith@email.com",
		Address:          "123 Main St, New York, NY 10001",
		EmergencyContact: "Jane Smith - +1-555-0124",
	},
	{
		Name:             "Maria Garcia",
		Age:              28,
		Gender:           "Female",
		Phone:            "+1-555-0125",
		Email:            "maria.garcia@email.com",
		Address:          "456 Oak Ave, Los Angeles, CA 90001",
		EmergencyContact: "Carlos Garcia - +1-555-0126",
	},
	{
		Name:             "David Johnson",
		Age:              42,
		Gender:           "Male",
		Phone:            "+1-555-0127",
		Email:            "david.johnson@email.com",
		Address:          "789 Pine St, Chicago, IL 60601",
		EmergencyContact: "Sarah Johnson - +1-555-0128",
	},
}

type sampleConsultation struct {
	patient int
	days    int
	time    string
	status  string
	notes   string
}

// Dates are relative to the day the seed runs.
var sampleConsultations = []sampleConsultation{
	{patient: 0, days: 5, time: "10:00", status: consultation.StatusPending, notes: "Regular checkup and blood pressure monitoring"},
	{patient: 1, days: -1, time: "14:30", status: consultation.StatusCompleted, notes: "Follow-up appointment for diabetes management"},
}

// seed inserts the sample data unless patients already exist. It returns the
// number of patients created.
func seed(ctx context.Context, patients patientSeeder, consultations consultationSeeder, now time.Time) (int, error) {
	existing, err := patients.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(samplePatients))
	for _, req := range samplePatients {
		p, err := patients.Create(ctx, req)
		if err != nil {
			return len(ids), fmt.Errorf("create patient %s: %w", req.Name, err)
		}
		ids = append(ids, p.ID)
	}

	for _, sc := range sampleConsultations {
		c, _, err := consultations.Create(ctx, consultation.NewConsultation{
			PatientID: ids[sc.patient],
			Date:      now.AddDate(0, 0, sc.days).Format(consultation.DateLayout),
			Time:      sc.time,
			Notes:     sc.notes,
		})
		if err != nil {
			return len(ids), fmt.Errorf("create consultation: %w", err)
		}
		if sc.status != consultation.StatusPending {
			if err := consultations.UpdateStatus(ctx, c.ID, sc.status); err != nil {
				return len(ids), fmt.Errorf("set consultation status: %w", err)
			}
		}
	}
	return len(ids), nil
}
