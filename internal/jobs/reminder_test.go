package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-scheduler/internal/appointment"
	"clinic-scheduler/internal/blob"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/notification"
	"clinic-scheduler/internal/store"
)

var now = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func book(t *testing.T, repo *appointment.Repository, date, slot string) model.Appointment {
	t.Helper()
	a, err := repo.Create(context.Background(), appointment.NewAppointment{
		PatientID: "usr_p", PatientName: "Pat", DoctorID: "usr_d", DoctorName: "Who",
		Date: date, Time: slot, Specialty: "checkup",
	})
	require.NoError(t, err)
	return a
}

func TestSweepRemindsOncePerConfirmedAppointment(t *testing.T) {
	ctx := context.Background()
	st := store.New(blob.NewMemory(), zap.NewNop())
	clock := func() time.Time { return now }
	engine := notification.New(st, zap.NewNop(), notification.WithClock(clock))
	repo := appointment.New(st, engine, zap.NewNop(), appointment.Config{Now: clock})

	tomorrow := book(t, repo, "18/10/2026", "09:00")
	_, err := repo.Confirm(ctx, tomorrow.ID)
	require.NoError(t, err)

	second := book(t, repo, "18/10/2026", "10:00")
	_, err = repo.Confirm(ctx, second.ID)
	require.NoError(t, err)

	book(t, repo, "18/10/2026", "11:00") // still pending

	later := book(t, repo, "19/10/2026", "09:00")
	_, err = repo.Confirm(ctx, later.ID)
	require.NoError(t, err)

	r := NewReminder(repo, engine, zap.NewNop(), time.UTC, time.Hour)
	r.now = clock

	n, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep must not repeat reminders")

	notes, err := engine.ListForUser(ctx, "usr_p")
	require.NoError(t, err)
	reminders := 0
	for _, x := range notes {
		if x.Type == model.NotificationAppointmentReminder {
			reminders++
			assert.Contains(t, []string{tomorrow.ID, second.ID}, x.AppointmentID)
		}
	}
	assert.Equal(t, 2, reminders)
}

func TestRunStopsWithContext(t *testing.T) {
	st := store.New(blob.NewMemory(), zap.NewNop())
	engine := notification.New(st, zap.NewNop())
	repo := appointment.New(st, engine, zap.NewNop(), appointment.Config{})
	r := NewReminder(repo, engine, zap.NewNop(), nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
