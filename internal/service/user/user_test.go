package user

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"news-api/internal/domain/models"
	"news-api/internal/lib/api/request"
	"news-api/internal/lib/logger"
	"news-api/internal/lib/shortid"
	"news-api/internal/lib/validation"
	"news-api/internal/storage"
	"news-api/internal/storage/sqlite"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type memSession struct {
	values    map[string]interface{}
	destroyed int
}

func newMemSession() *memSession {
	return &memSession{values: map[string]interface{}{}}
}

func (m *memSession) Put(_ context.Context, key string, val interface{}) { m.values[key] = val }
func (m *memSession) Get(_ context.Context, key string) interface{}      { return m.values[key] }

func (m *memSession) Destroy(context.Context) error {
	m.values = map[string]interface{}{}
	m.destroyed++
	return nil
}

type failingDelete struct {
	*sqlite.Storage
	err error
}

func (f *failingDelete) DeleteUser(ctx context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	return f.Storage.DeleteUser(ctx, userID)
}

// collidingSave reports the first generated user id as taken, the way a
// concurrent registration winning the race would.
type collidingSave struct {
	*sqlite.Storage
	attempts []string
}

func (c *collidingSave) SaveUser(ctx context.Context, u models.User) (int64, error) {
	c.attempts = append(c.attempts, u.UserID)
	if len(c.attempts) == 1 {
		return 0, fmt.Errorf("storage.sqlite.SaveUser: %w", storage.ErrUserIDTaken)
	}
	return c.Storage.SaveUser(ctx, u)
}

func newTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestService(t *testing.T, st Storage) (*Service, *memSession) {
	t.Helper()
	sess := newMemSession()
	return New(logger.Discard(), st, sess, time.Hour, testSecret, bcrypt.MinCost), sess
}

func step1(email string) request.RegisterStep1 {
	return request.RegisterStep1{FullName: "Jane Doe", Email: email, Password: "Secret1!x"}
}

func step2() request.RegisterStep2 {
	agreed := true
	return request.RegisterStep2{
		Bio:          strings.Repeat("I write about science and technology. ", 2),
		PortfolioURL: "janedoe.dev",
		TermsAgreed:  &agreed,
	}
}

func step3() request.RegisterStep3 {
	return request.RegisterStep3{Preferences: []string{"tech", "science"}, ExperienceLevel: "intermediate"}
}

func register(t *testing.T, svc *Service, email string) (string, models.User) {
	t.Helper()
	ctx := t.Context()
	require.NoError(t, svc.RegisterStep1(ctx, step1(email)))
	require.NoError(t, svc.RegisterStep2(ctx, step2()))
	require.NoError(t, svc.RegisterStep3(ctx, step3()))
	token, u, err := svc.FinalizeRegistration(ctx)
	require.NoError(t, err)
	return token, u
}

func TestRegistration_FullFlow(t *testing.T) {
	st := newTestStorage(t)
	svc, sess := newTestService(t, st)

	token, u := register(t, svc, "Jane@Example.com")

	assert.True(t, shortid.Valid(u.UserID))
	assert.Equal(t, models.RoleAuthor, u.Role)
	assert.False(t, u.IsVerified)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, 1, sess.destroyed)
	assert.Empty(t, sess.values)

	stored, err := st.UserByEmail(t.Context(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, stored.UserID)
	assert.Equal(t, []string{"tech", "science"}, stored.Preferences)
	assert.Equal(t, models.Intermediate, stored.ExperienceLevel)
	assert.True(t, stored.TermsAgreed)
	require.NoError(t, bcrypt.CompareHashAndPassword(stored.PassHash, []byte("Secret1!x")))

	parsed, err := jwtauth.VerifyToken(jwtauth.New("HS256", []byte(testSecret), nil), token)
	require.NoError(t, err)
	uid, ok := parsed.Get("uid")
	require.True(t, ok)
	assert.EqualValues(t, stored.ID, uid)
}

func TestRegistration_SessionNeverHoldsPlainPassword(t *testing.T) {
	svc, sess := newTestService(t, newTestStorage(t))

	require.NoError(t, svc.RegisterStep1(t.Context(), step1("jane@example.com")))

	id, ok := sess.values[keyStep1].(Identity)
	require.True(t, ok)
	assert.NotContains(t, string(id.PassHash), "Secret1!x")
	assert.NoError(t, bcrypt.CompareHashAndPassword(id.PassHash, []byte("Secret1!x")))
}

func TestFinalize_MissingStage(t *testing.T) {
	tests := []struct {
		name  string
		steps func(ctx context.Context, svc *Service) error
	}{
		{name: "nothing", steps: func(context.Context, *Service) error { return nil }},
		{name: "only step1", steps: func(ctx context.Context, svc *Service) error {
			return svc.RegisterStep1(ctx, step1("jane@example.com"))
		}},
		{name: "skips step2", steps: func(ctx context.Context, svc *Service) error {
			return errors.Join(svc.RegisterStep1(ctx, step1("jane@example.com")), svc.RegisterStep3(ctx, step3()))
		}},
		{name: "skips step1", steps: func(ctx context.Context, svc *Service) error {
			return errors.Join(svc.RegisterStep2(ctx, step2()), svc.RegisterStep3(ctx, step3()))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStorage(t)
			svc, _ := newTestService(t, st)

			require.NoError(t, tt.steps(t.Context(), svc))

			_, _, err := svc.FinalizeRegistration(t.Context())
			assert.ErrorIs(t, err, ErrIncompleteRegistration)

			users, err := st.LatestUsers(t.Context(), 10)
			require.NoError(t, err)
			assert.Empty(t, users)
		})
	}
}

func TestRegistration_DuplicateEmail(t *testing.T) {
	st := newTestStorage(t)
	svc, _ := newTestService(t, st)

	register(t, svc, "jane@example.com")

	err := svc.RegisterStep1(t.Context(), step1("JANE@example.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)

	users, err := st.LatestUsers(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestFinalize_EmailTakenAfterStage1(t *testing.T) {
	st := newTestStorage(t)
	first, _ := newTestService(t, st)
	second, sess := newTestService(t, st)
	ctx := t.Context()

	// Both sessions pass stage 1 before either finalizes.
	require.NoError(t, second.RegisterStep1(ctx, step1("jane@example.com")))
	require.NoError(t, second.RegisterStep2(ctx, step2()))
	require.NoError(t, second.RegisterStep3(ctx, step3()))

	register(t, first, "jane@example.com")

	_, _, err := second.FinalizeRegistration(ctx)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Zero(t, sess.destroyed)

	users, err := st.LatestUsers(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegistration_ValidationErrors(t *testing.T) {
	svc, sess := newTestService(t, newTestStorage(t))
	ctx := t.Context()

	err := svc.RegisterStep1(ctx, request.RegisterStep1{FullName: "Jo", Email: "nope", Password: "weak"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)

	notAgreed := false
	s2 := step2()
	s2.TermsAgreed = &notAgreed
	require.ErrorAs(t, svc.RegisterStep2(ctx, s2), &verrs)

	s3 := step3()
	s3.Preferences = []string{"a", "b", "c", "d", "e", "f"}
	require.ErrorAs(t, svc.RegisterStep3(ctx, s3), &verrs)

	assert.Empty(t, sess.values)
}

func TestRegistration_TrimsBeforeValidating(t *testing.T) {
	svc, sess := newTestService(t, newTestStorage(t))

	req := step1("jane@example.com")
	req.FullName = "  Al  "
	err := svc.RegisterStep1(t.Context(), req)
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 1)
	assert.Empty(t, sess.values)

	req.FullName = "  Jane Doe  "
	require.NoError(t, svc.RegisterStep1(t.Context(), req))
	state := svc.RegistrationState(t.Context())
	require.NotNil(t, state.Step1)
	assert.Equal(t, "Jane Doe", state.Step1.FullName)
}

func TestFinalize_RegeneratesTakenUserID(t *testing.T) {
	st := newTestStorage(t)
	colliding := &collidingSave{Storage: st}
	svc, _ := newTestService(t, colliding)

	_, u := register(t, svc, "jane@example.com")

	require.Len(t, colliding.attempts, 2)
	assert.NotEqual(t, colliding.attempts[0], colliding.attempts[1])
	assert.Equal(t, colliding.attempts[1], u.UserID)

	stored, err := st.UserByEmail(t.Context(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, colliding.attempts[1], stored.UserID)
}

func TestRegistrationState_AndDestroy(t *testing.T) {
	svc, _ := newTestService(t, newTestStorage(t))
	ctx := t.Context()

	assert.Equal(t, RegistrationState{}, svc.RegistrationState(ctx))

	require.NoError(t, svc.RegisterStep1(ctx, step1("jane@example.com")))
	require.NoError(t, svc.RegisterStep2(ctx, step2()))

	state := svc.RegistrationState(ctx)
	require.NotNil(t, state.Step1)
	require.NotNil(t, state.Step2)
	assert.Nil(t, state.Step3)
	assert.Equal(t, "jane@example.com", state.Step1.Email)
	assert.False(t, state.Step2.NewsletterUpdates)

	require.NoError(t, svc.DestroyRegistration(ctx))
	assert.Equal(t, RegistrationState{}, svc.RegistrationState(ctx))
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t, newTestStorage(t))
	_, u := register(t, svc, "jane@example.com")

	token, err := svc.Login(t.Context(), " JANE@example.com ", "Secret1!x")
	require.NoError(t, err)

	parsed, err := jwtauth.VerifyToken(jwtauth.New("HS256", []byte(testSecret), nil), token)
	require.NoError(t, err)
	email, _ := parsed.Get("email")
	assert.Equal(t, u.Email, email)

	_, err = svc.Login(t.Context(), "jane@example.com", "Wrong1!xx")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(t.Context(), "ghost@example.com", "Secret1!x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t, newTestStorage(t))
	_, u := register(t, svc, "jane@example.com")

	name := "Jane Q. Doe"
	level := "experienced"
	updated, err := svc.UpdateProfile(t.Context(), u.ID, request.ProfileUpdate{
		FullName:        &name,
		ExperienceLevel: &level,
		Preferences:     []string{"politics"},
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)
	assert.Equal(t, models.Experienced, updated.ExperienceLevel)
	assert.Equal(t, []string{"politics"}, updated.Preferences)
	assert.Equal(t, u.Bio, updated.Bio)
	assert.Equal(t, u.Email, updated.Email)

	short := "Jo"
	_, err = svc.UpdateProfile(t.Context(), u.ID, request.ProfileUpdate{FullName: &short})
	var verrs validation.Errors
	assert.ErrorAs(t, err, &verrs)

	padded := "  Al  "
	_, err = svc.UpdateProfile(t.Context(), u.ID, request.ProfileUpdate{FullName: &padded})
	assert.ErrorAs(t, err, &verrs)

	padded = "  Jane Roe  "
	updated, err = svc.UpdateProfile(t.Context(), u.ID, request.ProfileUpdate{FullName: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", updated.FullName)

	_, err = svc.UpdateProfile(t.Context(), 9999, request.ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestApproveAuthor(t *testing.T) {
	st := newTestStorage(t)
	svc, _ := newTestService(t, st)
	_, u := register(t, svc, "jane@example.com")

	unverified, err := svc.Authors(t.Context(), false)
	require.NoError(t, err)
	require.Len(t, unverified, 1)

	approvedAt := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return approvedAt }

	approved, err := svc.ApproveAuthor(t.Context(), u.UserID)
	require.NoError(t, err)
	assert.True(t, approved.IsVerified)
	assert.True(t, approved.UpdatedAt.Equal(approvedAt))

	stored, err := st.UserByUserID(t.Context(), u.UserID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(approvedAt), "got %s", stored.UpdatedAt)

	_, err = svc.ApproveAuthor(t.Context(), u.UserID)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	_, err = svc.ApproveAuthor(t.Context(), "Zz000000")
	assert.ErrorIs(t, err, ErrUserNotFound)

	verified, err := svc.Authors(t.Context(), true)
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, u.UserID, verified[0].UserID)
}

func TestPromoteAdmins(t *testing.T) {
	st := newTestStorage(t)
	svc, _ := newTestService(t, st)
	_, u := register(t, svc, "boss@example.com")

	require.NoError(t, svc.PromoteAdmins(t.Context(), []string{"BOSS@example.com", "absent@example.com"}))

	got, err := svc.User(t.Context(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
}

func TestDelete_ArchiveThenRemove(t *testing.T) {
	st := newTestStorage(t)
	svc, _ := newTestService(t, st)
	_, u := register(t, svc, "jane@example.com")

	require.NoError(t, svc.Delete(t.Context(), u.UserID))

	_, err := svc.User(t.Context(), u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	archived, err := svc.DeletedUsers(t.Context())
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, u.UserID, archived[0].UserID)
	assert.False(t, archived[0].DeletedAt.Before(archived[0].CreatedAt))

	// Replaying a finished delete succeeds.
	require.NoError(t, svc.Delete(t.Context(), u.UserID))

	// The archived code is never handed out again.
	taken, err := st.UserIDExists(t.Context(), u.UserID)
	require.NoError(t, err)
	assert.True(t, taken)

	assert.ErrorIs(t, svc.Delete(t.Context(), "Zz000000"), ErrUserNotFound)
}

func TestDelete_ReplayAfterPartialFailure(t *testing.T) {
	st := newTestStorage(t)
	flaky := &failingDelete{Storage: st, err: errors.New("disk full")}
	svc, _ := newTestService(t, flaky)
	_, u := register(t, svc, "jane@example.com")

	err := svc.Delete(t.Context(), u.UserID)
	require.Error(t, err)

	// The record is duplicated rather than lost.
	_, err = st.UserByUserID(t.Context(), u.UserID)
	require.NoError(t, err)
	_, err = st.ArchivedUser(t.Context(), u.UserID)
	require.NoError(t, err)

	flaky.err = nil
	require.NoError(t, svc.Delete(t.Context(), u.UserID))

	_, err = st.UserByUserID(t.Context(), u.UserID)
	assert.Error(t, err)
	archived, err := st.ArchivedUsers(t.Context())
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestLatest(t *testing.T) {
	svc, _ := newTestService(t, newTestStorage(t))
	register(t, svc, "first@example.com")
	_, second := register(t, svc, "second@example.com")

	users, err := svc.Latest(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, second.UserID, users[0].UserID)
}
