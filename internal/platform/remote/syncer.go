package remote

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Fleur41/HealthSense/internal/domain/patient"
	"github.com/Fleur41/HealthSense/internal/domain/visit"
	"github.com/Fleur41/HealthSense/internal/platform/outbox"
)

// Syncer mirrors outbox events to the remote backend. It is the handler the
// outbox consumer runs.
type Syncer struct {
	client *Client
	log    zerolog.Logger
}

func NewSyncer(client *Client, log zerolog.Logger) *Syncer {
	return &Syncer{client: client, log: log.With().Str("component", "syncer").Logger()}
}

func (s *Syncer) Handle(ctx context.Context, e outbox.Event) error {
	var err error
	switch e.Type {
	case outbox.PatientRegistered:
		var p patient.Patient
		if err = e.Decode(&p); err == nil {
			_, err = s.client.RegisterPatient(ctx, NewPatientRequest(&p))
		}
	case outbox.VitalsRecorded:
		var v visit.Vitals
		if err = e.Decode(&v); err == nil {
			_, err = s.client.AddVitals(ctx, NewVitalsRequest(&v))
		}
	case outbox.GeneralAssessmentRecorded:
		var a visit.GeneralAssessment
		if err = e.Decode(&a); err == nil {
			_, err = s.client.AddGeneralVisit(ctx, NewGeneralVisitRequest(&a))
		}
	case outbox.OverweightAssessmentRecorded:
		var a visit.OverweightAssessment
		if err = e.Decode(&a); err == nil {
			_, err = s.client.AddOverweightVisit(ctx, NewOverweightVisitRequest(&a))
		}
	default:
		s.log.Warn().Str("event_type", string(e.Type)).Str("event_id", e.ID).Msg("no remote mapping, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Debug().
		Str("event_type", string(e.Type)).
		Str("aggregate_id", e.AggregateID).
		Msg("synced")
	return nil
}
