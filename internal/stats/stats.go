// Package stats derives read-only figures from the appointment collection.
package stats

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"clinic-scheduler/internal/appointment"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/store"
)

type Stats struct {
	Total int `json:"total"`
	// ByStatus and Percentages always carry all three statuses.
	ByStatus    map[model.Status]int `json:"byStatus"`
	Percentages map[model.Status]int `json:"percentages"`
	Patients    int                  `json:"patients"`
	Doctors     int                  `json:"doctors"`
	BySpecialty map[string]int       `json:"bySpecialty"`
	// ByMonth is keyed "MM/YYYY".
	ByMonth map[string]int `json:"byMonth"`
}

// Filter narrows the appointments before aggregation. Empty fields match
// everything.
type Filter struct {
	DoctorID  string
	PatientID string
}

func (f Filter) match(a model.Appointment) bool {
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	return true
}

type Aggregator struct {
	appointments *store.Collection[model.Appointment]
	log          *zap.Logger
}

func NewAggregator(st *store.Store, log *zap.Logger) *Aggregator {
	return &Aggregator{
		appointments: store.NewCollection[model.Appointment](st, store.Appointments),
		log:          log,
	}
}

func (a *Aggregator) Compute(ctx context.Context, f Filter) (Stats, error) {
	all, err := a.appointments.Load(ctx)
	if err != nil {
		return Stats{}, err
	}
	picked := make([]model.Appointment, 0, len(all))
	for _, x := range all {
		if f.match(x) {
			picked = append(picked, x)
		}
	}
	return Compute(picked, a.log), nil
}

// Compute aggregates appointments. Records whose date does not split into
// day/month/year are left out of ByMonth and logged; everything else still
// counts them.
func Compute(appointments []model.Appointment, log *zap.Logger) Stats {
	s := Stats{
		Total:       len(appointments),
		ByStatus:    make(map[model.Status]int, len(model.Statuses)),
		Percentages: make(map[model.Status]int, len(model.Statuses)),
		BySpecialty: make(map[string]int),
		ByMonth:     make(map[string]int),
	}
	for _, st := range model.Statuses {
		s.ByStatus[st] = 0
	}

	patients := make(map[string]struct{})
	doctors := make(map[string]struct{})

	for _, a := range appointments {
		if a.Status.Valid() {
			s.ByStatus[a.Status]++
		}
		if a.PatientID != "" {
			patients[a.PatientID] = struct{}{}
		}
		if a.DoctorID != "" {
			doctors[a.DoctorID] = struct{}{}
		}
		if a.Specialty != "" {
			s.BySpecialty[a.Specialty]++
		}

		key, ok := monthKey(a.Date)
		if !ok {
			if log != nil {
				log.Warn("skipping appointment with malformed date",
					zap.String("appointment_id", a.ID),
					zap.String("date", a.Date))
			}
			continue
		}
		s.ByMonth[key]++
	}

	s.Patients = len(patients)
	s.Doctors = len(doctors)
	for _, st := range model.Statuses {
		s.Percentages[st] = percent(s.ByStatus[st], s.Total)
	}
	return s
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}

// monthKey tolerates records stored before dates were normalized, so
// "5/1/2027" and "05/01/2027" share the key "01/2027".
func monthKey(date string) (string, bool) {
	d, err := appointment.ParseDate(date, time.UTC)
	if err != nil {
		return "", false
	}
	return d.Format("01/2006"), true
}
