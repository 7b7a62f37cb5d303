package appointment_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-scheduler/internal/appointment"
	"clinic-scheduler/internal/blob"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/stats"
	"clinic-scheduler/internal/store"
)

var fixedNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

type event struct {
	kind   string
	apt    model.Appointment
	reason string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(e event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recorder) NotifyNewAppointment(_ context.Context, a model.Appointment) error {
	return r.add(event{kind: "new", apt: a})
}

func (r *recorder) NotifyAppointmentConfirmed(_ context.Context, a model.Appointment) error {
	return r.add(event{kind: "confirmed", apt: a})
}

func (r *recorder) NotifyAppointmentCancelled(_ context.Context, a model.Appointment, reason string) error {
	return r.add(event{kind: "cancelled", apt: a, reason: reason})
}

func setup(t *testing.T, mutate ...func(*appointment.Config)) (*appointment.Repository, *recorder) {
	t.Helper()
	cfg := appointment.Config{Now: func() time.Time { return fixedNow }}
	for _, m := range mutate {
		m(&cfg)
	}
	rec := &recorder{}
	st := store.New(blob.NewMemory(), zap.NewNop())
	return appointment.New(st, rec, zap.NewNop(), cfg), rec
}

func booking(slot string) appointment.NewAppointment {
	return appointment.NewAppointment{
		PatientID:   "usr_p",
		PatientName: "Pat",
		DoctorID:    "usr_d",
		DoctorName:  "Dora",
		Date:        "20/10/2026",
		Time:        slot,
		Specialty:   "cardiology",
	}
}

func TestCreate(t *testing.T) {
	repo, rec := setup(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, booking("09:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, fixedNow, a.CreatedAt)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, a.ID, all[0].ID)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "new", rec.events[0].kind)
	assert.Equal(t, "usr_d", rec.events[0].apt.DoctorID)
}

func TestCreateSlotBoundaries(t *testing.T) {
	repo, _ := setup(t)
	tests := []struct {
		slot string
		ok   bool
	}{
		{"08:30", false},
		{"09:00", true},
		{"09:15", false},
		{"12:30", true},
		{"17:30", true},
		{"18:00", false},
		{"9:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.slot, func(t *testing.T) {
			_, err := repo.Create(context.Background(), booking(tt.slot))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "time", ve.Field)
		})
	}
}

func TestCreateValidation(t *testing.T) {
	repo, rec := setup(t)
	tests := []struct {
		name  string
		edit  func(*appointment.NewAppointment)
		field string
	}{
		{"empty patient", func(n *appointment.NewAppointment) { n.PatientID = "" }, "patientId"},
		{"blank patient name", func(n *appointment.NewAppointment) { n.PatientName = "   " }, "patientName"},
		{"empty doctor", func(n *appointment.NewAppointment) { n.DoctorID = "" }, "doctorId"},
		{"empty specialty", func(n *appointment.NewAppointment) { n.Specialty = "" }, "specialty"},
		{"empty date", func(n *appointment.NewAppointment) { n.Date = "" }, "date"},
		{"unparseable date", func(n *appointment.NewAppointment) { n.Date = "2026-10-20" }, "date"},
		{"impossible date", func(n *appointment.NewAppointment) { n.Date = "31/02/2027" }, "date"},
		{"yesterday", func(n *appointment.NewAppointment) { n.Date = "16/10/2026" }, "date"},
		{"past the window", func(n *appointment.NewAppointment) { n.Date = "18/01/2027" }, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := booking("10:00")
			tt.edit(&in)
			_, err := repo.Create(context.Background(), in)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Empty(t, rec.events, "rejected bookings must not notify")
}

func TestCreateWindowEdges(t *testing.T) {
	repo, _ := setup(t)
	for _, d := range []string{"17/10/2026", "17/01/2027", "1/11/2026"} {
		in := booking("11:00")
		in.Date = d
		_, err := repo.Create(context.Background(), in)
		assert.NoError(t, err, d)
	}
}

func TestSetStatusConfirm(t *testing.T) {
	repo, rec := setup(t)
	ctx := context.Background()
	a, err := repo.Create(ctx, booking("09:30"))
	require.NoError(t, err)

	got, err := repo.SetStatus(ctx, a.ID, model.StatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	stored, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, stored.Status)

	require.Len(t, rec.events, 2)
	assert.Equal(t, "confirmed", rec.events[1].kind)
	assert.Equal(t, "usr_p", rec.events[1].apt.PatientID)
}

func TestCancelWithReason(t *testing.T) {
	repo, rec := setup(t)
	ctx := context.Background()
	a, _ := repo.Create(ctx, booking("10:30"))

	got, err := repo.Cancel(ctx, a.ID, " doctor unavailable ")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, "doctor unavailable", got.CancellationReason)
	assert.Equal(t, "doctor unavailable", rec.events[1].reason)
}

func TestSetStatusNotFound(t *testing.T) {
	repo, _ := setup(t)
	_, err := repo.SetStatus(context.Background(), "apt_missing", model.StatusConfirmed, "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetStatusUnknown(t *testing.T) {
	repo, _ := setup(t)
	a, _ := repo.Create(context.Background(), booking("11:30"))
	_, err := repo.SetStatus(context.Background(), a.ID, model.Status("done"), "")
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTerminalStatesStrict(t *testing.T) {
	repo, rec := setup(t)
	ctx := context.Background()
	a, _ := repo.Create(ctx, booking("13:00"))
	_, err := repo.Confirm(ctx, a.ID)
	require.NoError(t, err)

	_, err = repo.Cancel(ctx, a.ID, "")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = repo.SetStatus(ctx, a.ID, model.StatusPending, "")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = repo.Confirm(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	stored, _ := repo.Get(ctx, a.ID)
	assert.Equal(t, model.StatusConfirmed, stored.Status)
	assert.Len(t, rec.events, 2, "rejected transitions must not notify")
}

func TestTerminalStatesLenient(t *testing.T) {
	repo, _ := setup(t, func(c *appointment.Config) { c.Transitions = model.LenientTransitions })
	ctx := context.Background()
	a, _ := repo.Create(ctx, booking("13:30"))
	_, err := repo.Confirm(ctx, a.ID)
	require.NoError(t, err)

	got, err := repo.Cancel(ctx, a.ID, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	got, err = repo.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CancellationReason)

	_, err = repo.SetStatus(ctx, a.ID, model.StatusPending, "")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestListFilters(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	repo.Create(ctx, booking("09:00"))
	other := booking("09:30")
	other.PatientID, other.DoctorID = "usr_p2", "usr_d2"
	repo.Create(ctx, other)

	byPatient, err := repo.ListByPatient(ctx, "usr_p2")
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, "09:30", byPatient[0].Time)

	byDoctor, err := repo.ListByDoctor(ctx, "usr_d")
	require.NoError(t, err)
	require.Len(t, byDoctor, 1)
	assert.Equal(t, "09:00", byDoctor[0].Time)

	none, err := repo.ListByDoctor(ctx, "usr_nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDelete(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	a, _ := repo.Create(ctx, booking("14:00"))
	b, _ := repo.Create(ctx, booking("14:30"))

	require.NoError(t, repo.Delete(ctx, a.ID))
	all, _ := repo.ListAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)

	assert.ErrorIs(t, repo.Delete(ctx, a.ID), model.ErrNotFound)
}

func TestSerialSequenceInvariants(t *testing.T) {
	repo, _ := setup(t, func(c *appointment.Config) { c.Transitions = model.LenientTransitions })
	ctx := context.Background()

	want := map[string]model.Status{}
	slots := appointment.Slots()
	for i := 0; i < 12; i++ {
		a, err := repo.Create(ctx, booking(slots[i]))
		require.NoError(t, err)
		want[a.ID] = model.StatusPending
		switch i % 4 {
		case 1:
			_, err = repo.Confirm(ctx, a.ID)
			want[a.ID] = model.StatusConfirmed
		case 2:
			_, err = repo.Cancel(ctx, a.ID, "")
			want[a.ID] = model.StatusCancelled
		case 3:
			err = repo.Delete(ctx, a.ID)
			delete(want, a.ID)
		}
		require.NoError(t, err)

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(want))
		seen := map[string]bool{}
		for _, got := range all {
			assert.False(t, seen[got.ID], "duplicate id %s", got.ID)
			seen[got.ID] = true
			assert.True(t, got.Status.Valid())
			assert.Equal(t, want[got.ID], got.Status)
		}
	}
}

func TestConcurrentCreateKeepsBoth(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := booking("15:00")
			in.PatientID = fmt.Sprintf("usr_p%d", i)
			_, err := repo.Create(ctx, in)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestConcurrentConfirmAndCancel(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	var created []model.Appointment
	for _, s := range appointment.Slots()[:10] {
		a, err := repo.Create(ctx, booking(s))
		require.NoError(t, err)
		created = append(created, a)
	}

	var wg sync.WaitGroup
	for i, a := range created {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if i%2 == 0 {
				repo.Confirm(ctx, id)
			} else {
				repo.Cancel(ctx, id, "")
			}
		}(i, a.ID)
	}
	wg.Wait()

	all, _ := repo.ListAll(ctx)
	require.Len(t, all, len(created))
	for i, a := range all {
		want := model.StatusConfirmed
		if i%2 == 1 {
			want = model.StatusCancelled
		}
		assert.Equal(t, want, a.Status, a.ID)
	}
}

func TestDoubleBooking(t *testing.T) {
	repo, _ := setup(t, func(c *appointment.Config) { c.RejectDoubleBooking = true })
	ctx := context.Background()

	first, err := repo.Create(ctx, booking("16:00"))
	require.NoError(t, err)

	dup := booking("16:00")
	dup.Date = "20/10/2026"
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, model.ErrConflict)

	// a cancelled booking frees the slot
	_, err = repo.Cancel(ctx, first.ID, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, dup)
	assert.NoError(t, err)
}

func TestAvailableSlots(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	repo.Create(ctx, booking("09:00"))
	cancelled, _ := repo.Create(ctx, booking("09:30"))
	repo.Cancel(ctx, cancelled.ID, "")

	slots, err := repo.AvailableSlots(ctx, "usr_d", "20/10/2026")
	require.NoError(t, err)
	assert.Len(t, slots, len(appointment.Slots())-1)
	assert.NotContains(t, slots, "09:00")
	assert.Contains(t, slots, "09:30")

	other, err := repo.AvailableSlots(ctx, "usr_d2", "20/10/2026")
	require.NoError(t, err)
	assert.Equal(t, appointment.Slots(), other)

	_, err = repo.AvailableSlots(ctx, "usr_d", "01/01/2020")
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCreateStoresPaddedDate(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	unpadded := booking("09:00")
	unpadded.Date = "5/1/2027"
	a, err := repo.Create(ctx, unpadded)
	require.NoError(t, err)
	assert.Equal(t, "05/01/2027", a.Date)

	padded := booking("09:30")
	padded.Date = "05/01/2027"
	_, err = repo.Create(ctx, padded)
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	for _, x := range all {
		assert.Equal(t, "05/01/2027", x.Date)
	}
	assert.Equal(t, map[string]int{"01/2027": 2}, stats.Compute(all, nil).ByMonth)
}
