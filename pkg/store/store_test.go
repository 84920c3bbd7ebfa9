package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const wallet = "0xAbCdEf0000000000000000000000000000000001"

var lower = "0xabcdef0000000000000000000000000000000001"

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, zap.NewNop()), mock
}

func onboardingRows() *sqlmock.Rows {
	return sqlmock.NewRows(onboardingColumns)
}

func boolPtr(b bool) *bool { return &b }

func TestNormalizeDSN(t *testing.T) {
	assert.Equal(t,
		"postgres://u:p@db.example:5432/fast?application_name=x&sslmode=require",
		NormalizeDSN("postgres://u:p@db.example:5432/fast?sslmode=disable&application_name=x&SSL=true"))
	assert.Equal(t, "postgresql://h/db?sslmode=require", NormalizeDSN("postgresql://h/db"))
	assert.Equal(t, "host=h dbname=fast sslmode=require", NormalizeDSN("host=h sslmode=verify-full dbname=fast"))
}

func TestListUsers(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_onboarding ORDER BY wallet_address LIMIT 10")).
		WillReturnRows(onboardingRows().
			AddRow("0x01", true, false, false, false, false, false, false).
			AddRow("0x02", false, false, false, false, false, false, true))

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].ConnectWalletCompleted)
	assert.True(t, users[1].EmailCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersEmptyIsNotNil(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("FROM user_onboarding").WillReturnRows(onboardingRows())

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestGetOnboarding(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_onboarding WHERE wallet_address = $1")).
		WithArgs(lower).
		WillReturnRows(onboardingRows().AddRow(lower, true, true, false, false, false, false, false))

	o, err := s.GetOnboarding(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, lower, o.WalletAddress)
	assert.True(t, o.SetupRPCCompleted)
}

func TestGetOnboardingNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("FROM user_onboarding").WithArgs(lower).WillReturnRows(onboardingRows())

	_, err := s.GetOnboarding(context.Background(), wallet)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOnboardingCreates(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM user_onboarding").WithArgs(lower).WillReturnRows(onboardingRows())
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_onboarding")).
		WithArgs(lower, true, false, false, false, false, false, false).
		WillReturnRows(onboardingRows().AddRow(lower, true, false, false, false, false, false, false))
	mock.ExpectCommit()

	o, created, err := s.SaveOnboarding(context.Background(), wallet,
		OnboardingUpdate{ConnectWalletCompleted: boolPtr(true)}, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, o.ConnectWalletCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveOnboardingPartialUpdate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM user_onboarding").WithArgs(lower).
		WillReturnRows(onboardingRows().AddRow(lower, true, false, false, false, false, false, false))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE user_onboarding SET x_completed = $1, email_completed = $2 WHERE wallet_address = $3")).
		WithArgs(true, false, lower).
		WillReturnRows(onboardingRows().AddRow(lower, true, false, false, true, false, false, false))
	mock.ExpectCommit()

	o, created, err := s.SaveOnboarding(context.Background(), wallet,
		OnboardingUpdate{XCompleted: boolPtr(true), EmailCompleted: boolPtr(false)}, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, o.XCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveOnboardingNoFields(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM user_onboarding").WithArgs(lower).
		WillReturnRows(onboardingRows().AddRow(lower, true, false, false, false, false, false, false))
	mock.ExpectRollback()

	_, _, err := s.SaveOnboarding(context.Background(), wallet, OnboardingUpdate{}, false)
	assert.ErrorIs(t, err, ErrNoFields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveOnboardingReplaceWritesEveryFlag(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM user_onboarding").WithArgs(lower).
		WillReturnRows(onboardingRows().AddRow(lower, true, true, true, true, true, true, true))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE user_onboarding SET connect_wallet_completed = $1")).
		WithArgs(false, false, true, false, false, false, false, lower).
		WillReturnRows(onboardingRows().AddRow(lower, false, false, true, false, false, false, false))
	mock.ExpectCommit()

	o, created, err := s.SaveOnboarding(context.Background(), wallet,
		OnboardingUpdate{MintSBTCompleted: boolPtr(true)}, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, o.ConnectWalletCompleted)
	assert.True(t, o.MintSBTCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveOnboardingRollsBackOnError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM user_onboarding").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := s.SaveOnboarding(context.Background(), wallet, OnboardingUpdate{}, true)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommunityActivity(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("ROW_NUMBER() OVER (PARTITION BY entity ORDER BY created_at DESC) AS rn FROM user_activity WHERE user_address = $1")).
		WithArgs(lower).
		WillReturnRows(sqlmock.NewRows([]string{"entity", "activity"}).
			AddRow("ecosystem-set", true).
			AddRow("discord", nil))

	got, err := s.CommunityActivity(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ecosystem-set": true, "discord": false}, got)
}

func TestRecordActivity(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_activity (user_address,entity,activity) VALUES ($1,$2,$3)")).
		WithArgs(lower, "ecosystem-set", true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.RecordActivity(context.Background(), wallet, "ecosystem-set", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsEmptyURL(t *testing.T) {
	_, err := Open("", zap.NewNop())
	assert.Error(t, err)
}
