package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcareplus/vetcare-api/internal/auth"
	"github.com/vetcareplus/vetcare-api/internal/config"
	"github.com/vetcareplus/vetcare-api/internal/notify"
	redisclient "github.com/vetcareplus/vetcare-api/internal/redis"
)

type fakeRepo struct {
	pets         map[uuid.UUID]*Pet
	vets         map[uuid.UUID]*Vet
	details      map[uuid.UUID]*AppointmentDetail
	conflict     bool
	conflictErr  error
	createErr    error
	lastCreate   *CreateParams
	lastResched  *RescheduleParams
	lastCancelID uuid.UUID
	lastNotice   notify.Message
	lastFilter   ListFilter
	forced       []Status
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pets:    make(map[uuid.UUID]*Pet),
		vets:    make(map[uuid.UUID]*Vet),
		details: make(map[uuid.UUID]*AppointmentDetail),
	}
}

func (f *fakeRepo) GetPetByID(_ context.Context, id uuid.UUID) (*Pet, error) {
	p, ok := f.pets[id]
	if !ok {
		return nil, ErrPetNotOwned
	}
	return p, nil
}

func (f *fakeRepo) GetVetByID(_ context.Context, id uuid.UUID) (*Vet, error) {
	v, ok := f.vets[id]
	if !ok {
		return nil, ErrVetNotFound
	}
	return v, nil
}

func (f *fakeRepo) HasConflict(_ context.Context, _ uuid.UUID, _ time.Time, _ time.Duration, _ *uuid.UUID) (bool, error) {
	return f.conflict, f.conflictErr
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt := d.Appointment
	return &appt, nil
}

func (f *fakeRepo) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return d, nil
}

func (f *fakeRepo) ListAppointments(_ context.Context, filter ListFilter) ([]AppointmentDetail, error) {
	f.lastFilter = filter
	var out []AppointmentDetail
	for _, d := range f.details {
		if filter.OwnerID != nil && d.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeRepo) CreateBooked(_ context.Context, p CreateParams) (*Appointment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.lastCreate = &p
	now := time.Now()
	return &Appointment{
		ID:        uuid.New(),
		OwnerID:   p.OwnerID,
		PetID:     p.PetID,
		VetID:     p.VetID,
		StartAt:   p.StartAt,
		Status:    StatusBooked,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (f *fakeRepo) Reschedule(_ context.Context, p RescheduleParams) (*Appointment, error) {
	f.lastResched = &p
	d, ok := f.details[p.AppointmentID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt := d.Appointment
	appt.StartAt = p.NewStartAt
	return &appt, nil
}

func (f *fakeRepo) Cancel(_ context.Context, id uuid.UUID, notice notify.Message) (*Appointment, error) {
	f.lastCancelID = id
	f.lastNotice = notice
	d, ok := f.details[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt := d.Appointment
	appt.Status = StatusCancelled
	return &appt, nil
}

func (f *fakeRepo) ForceStatus(_ context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	f.forced = append(f.forced, to)
	d, ok := f.details[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt := d.Appointment
	appt.Status = to
	return &appt, nil
}

type fakeLocker struct {
	contended bool
	calls     int
}

func (f *fakeLocker) WithVetLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	f.calls++
	if f.contended {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

type fakeWaker struct{ nudges int }

func (f *fakeWaker) Nudge() { f.nudges++ }

func testConfig() config.Config {
	return config.Config{
		SlotWindow: 30 * time.Minute,
		BookingFee: 3500,
		AppBaseURL: "https://vetcare.example.com",
	}
}

func ownerIdentity(id uuid.UUID) auth.Identity {
	return auth.Identity{ID: id, Role: auth.RoleOwner, Email: "owner@example.com"}
}

func adminIdentity() auth.Identity {
	return auth.Identity{ID: uuid.New(), Role: auth.RoleAdmin, Email: "admin@example.com"}
}

func TestCreateAppointment_Success(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	petID := uuid.New()
	vetID := uuid.New()
	repo.pets[petID] = &Pet{ID: petID, OwnerID: ownerID, Name: "Biscuit"}
	repo.vets[vetID] = &Vet{ID: vetID, Name: "Dr. Patel"}

	locker := &fakeLocker{}
	waker := &fakeWaker{}
	svc := NewService(repo, locker, testConfig(), waker, nil)

	startAt := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	appt, err := svc.CreateAppointment(context.Background(), ownerIdentity(ownerID), petID, vetID, startAt)
	require.NoError(t, err)

	assert.Equal(t, StatusBooked, appt.Status)
	assert.Equal(t, startAt, appt.StartAt)
	assert.Equal(t, 1, locker.calls)
	assert.Equal(t, 1, waker.nudges)

	require.NotNil(t, repo.lastCreate)
	assert.Equal(t, int64(3500), repo.lastCreate.FeeCents)
	assert.Equal(t, "mock", repo.lastCreate.Provider)
	assert.Equal(t, 30*time.Minute, repo.lastCreate.Window)
	assert.Equal(t, notify.KindBooked, repo.lastCreate.Notice.Kind)
	assert.Equal(t, "owner@example.com", repo.lastCreate.Notice.Recipient)
	assert.Equal(t, "Biscuit", repo.lastCreate.Notice.Payload.PetName)
	assert.Equal(t, "Dr. Patel", repo.lastCreate.Notice.Payload.VetName)
	assert.Equal(t, "https://vetcare.example.com/appointments", repo.lastCreate.Notice.Payload.ManageURL)
}

func TestCreateAppointment_PetNotOwned(t *testing.T) {
	repo := newFakeRepo()
	petID := uuid.New()
	vetID := uuid.New()
	repo.pets[petID] = &Pet{ID: petID, OwnerID: uuid.New(), Name: "Biscuit"}
	repo.vets[vetID] = &Vet{ID: vetID, Name: "Dr. Patel"}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.CreateAppointment(context.Background(), ownerIdentity(uuid.New()), petID, vetID, time.Now())
	assert.ErrorIs(t, err, ErrPetNotOwned)
}

func TestCreateAppointment_MissingPetIndistinguishableFromNotOwned(t *testing.T) {
	repo := newFakeRepo()
	vetID := uuid.New()
	repo.vets[vetID] = &Vet{ID: vetID, Name: "Dr. Patel"}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.CreateAppointment(context.Background(), ownerIdentity(uuid.New()), uuid.New(), vetID, time.Now())
	assert.ErrorIs(t, err, ErrPetNotOwned)
}

func TestCreateAppointment_AdminCanBookAnyonesPet(t *testing.T) {
	repo := newFakeRepo()
	petID := uuid.New()
	vetID := uuid.New()
	repo.pets[petID] = &Pet{ID: petID, OwnerID: uuid.New(), Name: "Biscuit"}
	repo.vets[vetID] = &Vet{ID: vetID, Name: "Dr. Patel"}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.CreateAppointment(context.Background(), adminIdentity(), petID, vetID, time.Now())
	assert.NoError(t, err)
}

func TestCreateAppointment_VetNotFound(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	petID := uuid.New()
	repo.pets[petID] = &Pet{ID: petID, OwnerID: ownerID, Name: "Biscuit"}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.CreateAppointment(context.Background(), ownerIdentity(ownerID), petID, uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrVetNotFound)
}

func TestCreateAppointment_Conflict(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	petID := uuid.New()
	vetID := uuid.New()
	repo.pets[petID] = &Pet{ID: petID, OwnerID: ownerID, Name: "Biscuit"}
	repo.vets[vetID] = &Vet{ID: vetID, Name: "Dr. Patel"}
	repo.conflict = true

	locker := &fakeLocker{}
	svc := NewService(repo, locker, testConfig(), nil, nil)

	_, err := svc.CreateAppointment(context.Background(), ownerIdentity(ownerID), petID, vetID, time.Now())
	assert.ErrorIs(t, err, ErrTimeConflict)
	assert.Equal(t, 0, locker.calls, "conflicting request must not take the lock")
}

func TestCreateAppointment_ConflictInsideTransaction(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	petID := uuid.New()
	vetID := uuid.New()
	repo.pets[petID] = &Pet{ID: petID, OwnerID: ownerID, Name: "Biscuit"}
	repo.vets[vetID] = &Vet{ID: vetID, Name: "Dr. Patel"}
	repo.createErr = ErrTimeConflict

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.CreateAppointment(context.Background(), ownerIdentity(ownerID), petID, vetID, time.Now())
	assert.ErrorIs(t, err, ErrTimeConflict)
}

func TestCreateAppointment_LockContention(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	petID := uuid.New()
	vetID := uuid.New()
	repo.pets[petID] = &Pet{ID: petID, OwnerID: ownerID, Name: "Biscuit"}
	repo.vets[vetID] = &Vet{ID: vetID, Name: "Dr. Patel"}

	waker := &fakeWaker{}
	svc := NewService(repo, &fakeLocker{contended: true}, testConfig(), waker, nil)

	_, err := svc.CreateAppointment(context.Background(), ownerIdentity(ownerID), petID, vetID, time.Now())
	assert.ErrorIs(t, err, ErrVetBeingBooked)
	assert.Equal(t, 0, waker.nudges)
}

func TestRescheduleAppointment_Success(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	apptID := uuid.New()
	vetID := uuid.New()
	oldStart := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	repo.details[apptID] = &AppointmentDetail{
		Appointment: Appointment{ID: apptID, OwnerID: ownerID, VetID: vetID, StartAt: oldStart, Status: StatusBooked},
		PetName:     "Biscuit",
		VetName:     "Dr. Patel",
		OwnerEmail:  "owner@example.com",
	}

	waker := &fakeWaker{}
	svc := NewService(repo, &fakeLocker{}, testConfig(), waker, nil)

	newStart := oldStart.Add(2 * time.Hour)
	appt, err := svc.RescheduleAppointment(context.Background(), ownerIdentity(ownerID), apptID, newStart)
	require.NoError(t, err)

	assert.Equal(t, newStart, appt.StartAt)
	assert.Equal(t, 1, waker.nudges)

	require.NotNil(t, repo.lastResched)
	assert.Equal(t, notify.KindRescheduled, repo.lastResched.Notice.Kind)
	require.NotNil(t, repo.lastResched.Notice.Payload.OldStartAt)
	assert.Equal(t, oldStart, *repo.lastResched.Notice.Payload.OldStartAt)
	assert.Equal(t, newStart, repo.lastResched.Notice.Payload.StartAt)
}

func TestRescheduleAppointment_OnlyBooked(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		repo := newFakeRepo()
		ownerID := uuid.New()
		apptID := uuid.New()
		repo.details[apptID] = &AppointmentDetail{
			Appointment: Appointment{ID: apptID, OwnerID: ownerID, Status: status},
		}

		svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

		_, err := svc.RescheduleAppointment(context.Background(), ownerIdentity(ownerID), apptID, time.Now())
		assert.ErrorIs(t, err, ErrNotReschedulable, "status %s", status)
	}
}

func TestRescheduleAppointment_Forbidden(t *testing.T) {
	repo := newFakeRepo()
	apptID := uuid.New()
	repo.details[apptID] = &AppointmentDetail{
		Appointment: Appointment{ID: apptID, OwnerID: uuid.New(), Status: StatusBooked},
	}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.RescheduleAppointment(context.Background(), ownerIdentity(uuid.New()), apptID, time.Now())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelAppointment_Success(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	apptID := uuid.New()
	startAt := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	repo.details[apptID] = &AppointmentDetail{
		Appointment: Appointment{ID: apptID, OwnerID: ownerID, StartAt: startAt, Status: StatusBooked},
		PetName:     "Biscuit",
		VetName:     "Dr. Patel",
		OwnerEmail:  "owner@example.com",
	}

	waker := &fakeWaker{}
	svc := NewService(repo, &fakeLocker{}, testConfig(), waker, nil)

	appt, err := svc.CancelAppointment(context.Background(), ownerIdentity(ownerID), apptID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, appt.Status)
	assert.Equal(t, notify.KindCancelled, repo.lastNotice.Kind)
	assert.Equal(t, "owner@example.com", repo.lastNotice.Recipient)
	assert.Equal(t, 1, waker.nudges)
}

func TestCancelAppointment_OnlyBooked(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	apptID := uuid.New()
	repo.details[apptID] = &AppointmentDetail{
		Appointment: Appointment{ID: apptID, OwnerID: ownerID, Status: StatusCompleted},
	}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.CancelAppointment(context.Background(), ownerIdentity(ownerID), apptID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestSetStatus_AdminOnly(t *testing.T) {
	repo := newFakeRepo()
	apptID := uuid.New()
	repo.details[apptID] = &AppointmentDetail{
		Appointment: Appointment{ID: apptID, OwnerID: uuid.New(), Status: StatusCancelled},
	}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.SetStatus(context.Background(), ownerIdentity(uuid.New()), apptID, StatusBooked)
	assert.ErrorIs(t, err, ErrForbidden)

	appt, err := svc.SetStatus(context.Background(), adminIdentity(), apptID, StatusBooked)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, appt.Status, "admin may revive a terminal appointment")
}

func TestSetStatus_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.SetStatus(context.Background(), adminIdentity(), uuid.New(), Status("ARCHIVED"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestListAppointments_NonAdminForciblyScoped(t *testing.T) {
	repo := newFakeRepo()
	me := uuid.New()
	other := uuid.New()
	mine := uuid.New()
	theirs := uuid.New()
	repo.details[mine] = &AppointmentDetail{Appointment: Appointment{ID: mine, OwnerID: me, Status: StatusBooked}}
	repo.details[theirs] = &AppointmentDetail{Appointment: Appointment{ID: theirs, OwnerID: other, Status: StatusBooked}}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	// The owner filter pointing at someone else must be overwritten.
	out, err := svc.ListAppointments(context.Background(), ownerIdentity(me), ListFilter{OwnerID: &other})
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, mine, out[0].ID)
	require.NotNil(t, repo.lastFilter.OwnerID)
	assert.Equal(t, me, *repo.lastFilter.OwnerID)
}

func TestListAppointments_AdminFilterHonored(t *testing.T) {
	repo := newFakeRepo()
	other := uuid.New()
	theirs := uuid.New()
	repo.details[theirs] = &AppointmentDetail{Appointment: Appointment{ID: theirs, OwnerID: other, Status: StatusBooked}}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	out, err := svc.ListAppointments(context.Background(), adminIdentity(), ListFilter{OwnerID: &other})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, theirs, out[0].ID)
}

func TestGetAppointment_Authz(t *testing.T) {
	repo := newFakeRepo()
	ownerID := uuid.New()
	apptID := uuid.New()
	repo.details[apptID] = &AppointmentDetail{
		Appointment: Appointment{ID: apptID, OwnerID: ownerID, Status: StatusBooked},
	}

	svc := NewService(repo, &fakeLocker{}, testConfig(), nil, nil)

	_, err := svc.GetAppointment(context.Background(), ownerIdentity(ownerID), apptID)
	assert.NoError(t, err)

	_, err = svc.GetAppointment(context.Background(), ownerIdentity(uuid.New()), apptID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetAppointment(context.Background(), adminIdentity(), apptID)
	assert.NoError(t, err)
}
