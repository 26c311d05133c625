package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"cineseat/internal/layouts"
	"cineseat/internal/seats"
	"cineseat/internal/shared/testutil"
	"cineseat/internal/tickets"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingMaterializer struct {
	calls   []uuid.UUID
	fail    map[uuid.UUID]bool
	failAll bool
}

func (m *recordingMaterializer) MaterializeSession(ctx context.Context, sessionID uuid.UUID) error {
	m.calls = append(m.calls, sessionID)
	if m.failAll || m.fail[sessionID] {
		return errors.New("boom")
	}
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	db := testutil.NewSQLiteDB(t, &Cinema{}, &Auditorium{}, &Session{}, &seats.Seat{}, &tickets.Ticket{})
	return NewService(NewRepository(db)), db
}

func smallLayout() *layouts.Layout {
	return &layouts.Layout{Rows: []layouts.RowSpec{{Row: "A", SeatCount: 3}}}
}

func createAuditorium(t *testing.T, svc Service, layout *layouts.Layout) *Auditorium {
	t.Helper()
	ctx := context.Background()
	cinema, err := svc.CreateCinema(ctx, CreateCinemaRequest{Name: "Rio", Timezone: "Europe/Lisbon"})
	require.NoError(t, err)
	auditorium, err := svc.CreateAuditorium(ctx, CreateAuditoriumRequest{CinemaID: cinema.ID, Name: "Screen 1", Layout: layout})
	require.NoError(t, err)
	return auditorium
}

func sessionRequest(auditoriumID uuid.UUID) CreateSessionRequest {
	starts := time.Date(2026, 10, 20, 20, 0, 0, 0, time.UTC)
	return CreateSessionRequest{
		AuditoriumID:   auditoriumID,
		MovieTitle:     "Metropolis",
		StartsAt:       starts,
		EndsAt:         starts.Add(2 * time.Hour),
		BasePriceCents: 1000,
		VIPPriceCents:  1500,
	}
}

func TestCreateAuditorium_RejectsInvalidLayout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cinema, err := svc.CreateCinema(ctx, CreateCinemaRequest{Name: "Rio"})
	require.NoError(t, err)

	_, err = svc.CreateAuditorium(ctx, CreateAuditoriumRequest{
		CinemaID: cinema.ID,
		Name:     "Broken",
		Layout:   &layouts.Layout{Rows: []layouts.RowSpec{{Row: "A", SeatCount: 2}, {Row: "A", SeatCount: 2}}},
	})
	assert.ErrorIs(t, err, layouts.ErrInvalidLayout)
}

func TestCreateSession_MaterializesSeats(t *testing.T) {
	svc, _ := newTestService(t)
	m := &recordingMaterializer{}
	svc.SetMaterializer(m)
	auditorium := createAuditorium(t, svc, smallLayout())

	session, err := svc.CreateSession(context.Background(), sessionRequest(auditorium.ID))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{session.ID}, m.calls)

	got, err := svc.GetSession(context.Background(), session.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Metropolis", got.MovieTitle)
}

func TestCreateSession_KeepsSessionWhenExpansionFails(t *testing.T) {
	svc, db := newTestService(t)
	auditorium := createAuditorium(t, svc, smallLayout())
	svc.SetMaterializer(&recordingMaterializer{failAll: true})

	session, err := svc.CreateSession(context.Background(), sessionRequest(auditorium.ID))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&Session{}).Where("id = ?", session.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateSession_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	auditorium := createAuditorium(t, svc, smallLayout())

	req := sessionRequest(auditorium.ID)
	req.EndsAt = req.StartsAt
	_, err := svc.CreateSession(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = svc.CreateSession(context.Background(), sessionRequest(uuid.New()))
	assert.ErrorIs(t, err, ErrAuditoriumNotFound)
}

func TestUpdateLayout_ReconcilesEverySession(t *testing.T) {
	svc, _ := newTestService(t)
	auditorium := createAuditorium(t, svc, smallLayout())
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, sessionRequest(auditorium.ID))
	require.NoError(t, err)
	second, err := svc.CreateSession(ctx, sessionRequest(auditorium.ID))
	require.NoError(t, err)

	m := &recordingMaterializer{fail: map[uuid.UUID]bool{second.ID: true}}
	svc.SetMaterializer(m)

	bigger := layouts.Layout{Rows: []layouts.RowSpec{{Row: "A", SeatCount: 5}}}
	resp, err := svc.UpdateLayout(ctx, auditorium.ID.String(), bigger)
	require.NoError(t, err)

	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, m.calls)
	assert.Equal(t, 1, resp.Reconciled)
	assert.Equal(t, []string{second.ID.String()}, resp.Failed)
	require.NotNil(t, resp.Auditorium.SeatLayout())
	assert.Equal(t, 5, resp.Auditorium.SeatLayout().Rows[0].SeatCount)

	_, err = svc.UpdateLayout(ctx, "not-a-uuid", bigger)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestListSessions_KeysetPaging(t *testing.T) {
	svc, db := newTestService(t)
	auditorium := createAuditorium(t, svc, nil)

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	var want []uuid.UUID
	for i := 0; i < 5; i++ {
		session := &Session{
			AuditoriumID: auditorium.ID,
			MovieTitle:   "Nosferatu",
			StartsAt:     base.Add(24 * time.Hour),
			EndsAt:       base.Add(26 * time.Hour),
			CreatedAt:    base.Add(time.Duration(i/2) * time.Minute),
		}
		require.NoError(t, db.Create(session).Error)
		want = append(want, session.ID)
	}

	var got []uuid.UUID
	query := SessionListQuery{Limit: 2}
	for pages := 0; pages < 10; pages++ {
		resp, err := svc.ListSessions(context.Background(), query)
		require.NoError(t, err)
		for _, s := range resp.Sessions {
			got = append(got, s.ID)
		}
		if resp.Next == nil {
			break
		}
		createdAt := resp.Next.CreatedAt
		query.AfterCreatedAt = &createdAt
		query.AfterID = resp.Next.ID.String()
	}

	assert.ElementsMatch(t, want, got)
	assert.Len(t, got, 5, "no session is returned twice")
}

func TestDeleteSession(t *testing.T) {
	svc, db := newTestService(t)
	auditorium := createAuditorium(t, svc, smallLayout())
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sessionRequest(auditorium.ID))
	require.NoError(t, err)
	seat := &seats.Seat{SessionID: session.ID, Row: "A", Number: 1, SeatCode: "A1", Type: layouts.SeatTypeStandard, PriceCents: 1000}
	require.NoError(t, db.Create(seat).Error)

	ticketed, err := svc.CreateSession(ctx, sessionRequest(auditorium.ID))
	require.NoError(t, err)
	require.NoError(t, db.Create(&tickets.Ticket{
		SessionID: ticketed.ID, SeatID: uuid.New(), CartID: uuid.New(),
		SeatCode: "A1", PriceCents: 1000, IssuedAt: time.Now().UTC(),
	}).Error)

	require.NoError(t, svc.DeleteSession(ctx, session.ID.String()))
	var seatCount int64
	require.NoError(t, db.Model(&seats.Seat{}).Where("session_id = ?", session.ID).Count(&seatCount).Error)
	assert.Zero(t, seatCount)

	_, err = svc.GetSession(ctx, session.ID.String())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.DeleteSession(ctx, ticketed.ID.String()), ErrSessionHasTickets)
	assert.ErrorIs(t, svc.DeleteSession(ctx, uuid.NewString()), ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, "nope"), ErrInvalidSession)
}
