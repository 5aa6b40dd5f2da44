package service

import (
	"context"
	"time"

	"ratwatch/events"
	"ratwatch/models"

	"github.com/stretchr/testify/mock"
)

// MockWatchRepository is a mock implementation of WatchRepository
type MockWatchRepository struct {
	mock.Mock
}

func (m *MockWatchRepository) Create(ctx context.Context, watch *models.Watch) error {
	args := m.Called(ctx, watch)
	return args.Error(0)
}

func (m *MockWatchRepository) GetByID(ctx context.Context, id int64) (*models.Watch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Watch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) GetActiveByGuild(ctx context.Context, guildID int64) ([]*models.Watch, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) GetByGuild(ctx context.Context, guildID int64, limit int) ([]*models.Watch, error) {
	args := m.Called(ctx, guildID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) GetDueForVotingOpen(ctx context.Context, now time.Time) ([]*models.Watch, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) GetDueForFinalization(ctx context.Context, now time.Time) ([]*models.Watch, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) FindDuplicate(ctx context.Context, guildID, accusedUserID int64, scheduledAt time.Time, window time.Duration) (*models.Watch, error) {
	args := m.Called(ctx, guildID, accusedUserID, scheduledAt, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) ConditionalUpdateStatus(ctx context.Context, watch *models.Watch, expectedStatus models.WatchStatus) (bool, error) {
	args := m.Called(ctx, watch, expectedStatus)
	return args.Bool(0), args.Error(1)
}

func (m *MockWatchRepository) UpdateMessageIDs(ctx context.Context, watchID, messageID, channelID int64) error {
	args := m.Called(ctx, watchID, messageID, channelID)
	return args.Error(0)
}

// MockWatchVoteRepository is a mock implementation of WatchVoteRepository
type MockWatchVoteRepository struct {
	mock.Mock
}

func (m *MockWatchVoteRepository) Upsert(ctx context.Context, vote *models.WatchVote) (bool, error) {
	args := m.Called(ctx, vote)
	return args.Bool(0), args.Error(1)
}

func (m *MockWatchVoteRepository) Tally(ctx context.Context, watchID int64) (*models.VoteTally, error) {
	args := m.Called(ctx, watchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoteTally), args.Error(1)
}

func (m *MockWatchVoteRepository) GetByWatch(ctx context.Context, watchID int64) ([]*models.WatchVote, error) {
	args := m.Called(ctx, watchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WatchVote), args.Error(1)
}

func (m *MockWatchVoteRepository) GetByVoter(ctx context.Context, watchID, voterUserID int64) (*models.WatchVote, error) {
	args := m.Called(ctx, watchID, voterUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WatchVote), args.Error(1)
}

// MockGuildSettingsRepository is a mock implementation of GuildSettingsRepository
type MockGuildSettingsRepository struct {
	mock.Mock
}

func (m *MockGuildSettingsRepository) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) Update(ctx context.Context, settings *models.GuildSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a test double for UnitOfWork. Begin, Commit, and Rollback
// succeed unconditionally and are counted; repositories are the embedded mocks.
type MockUnitOfWork struct {
	WatchRepo         *MockWatchRepository
	WatchVoteRepo     *MockWatchVoteRepository
	GuildSettingsRepo *MockGuildSettingsRepository
	Publisher         *MockEventPublisher

	BeginCount    int
	CommitCount   int
	RollbackCount int
}

// NewMockUnitOfWork creates a MockUnitOfWork with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		WatchRepo:         &MockWatchRepository{},
		WatchVoteRepo:     &MockWatchVoteRepository{},
		GuildSettingsRepo: &MockGuildSettingsRepository{},
		Publisher:         &MockEventPublisher{},
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	m.BeginCount++
	return nil
}

func (m *MockUnitOfWork) Commit() error {
	m.CommitCount++
	return nil
}

func (m *MockUnitOfWork) Rollback() error {
	m.RollbackCount++
	return nil
}

func (m *MockUnitOfWork) WatchRepository() WatchRepository {
	return m.WatchRepo
}

func (m *MockUnitOfWork) WatchVoteRepository() WatchVoteRepository {
	return m.WatchVoteRepo
}

func (m *MockUnitOfWork) GuildSettingsRepository() GuildSettingsRepository {
	return m.GuildSettingsRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Publisher
}

// AssertExpectations asserts expectations on all embedded repository mocks
func (m *MockUnitOfWork) AssertExpectations(t mock.TestingT) {
	m.WatchRepo.AssertExpectations(t)
	m.WatchVoteRepo.AssertExpectations(t)
	m.GuildSettingsRepo.AssertExpectations(t)
	m.Publisher.AssertExpectations(t)
}

// MockUnitOfWorkFactory returns the same MockUnitOfWork from every Create call
type MockUnitOfWorkFactory struct {
	UnitOfWork *MockUnitOfWork
}

// NewMockUnitOfWorkFactory creates a factory around a fresh MockUnitOfWork
func NewMockUnitOfWorkFactory() *MockUnitOfWorkFactory {
	return &MockUnitOfWorkFactory{UnitOfWork: NewMockUnitOfWork()}
}

func (f *MockUnitOfWorkFactory) Create() UnitOfWork {
	return f.UnitOfWork
}
