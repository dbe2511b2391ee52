package app

import (
	schedulingDomain "github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	schedulingPersistence "github.com/felixgeelhaar/classplan/internal/scheduling/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/classplan/internal/shared/application"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/outbox"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn database.Connection
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// Driver returns the backend the factory builds for.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.conn.Driver()
}

// MeetingRepository creates a meeting repository for the configured driver.
func (f *RepositoryFactory) MeetingRepository() schedulingDomain.MeetingRepository {
	return schedulingPersistence.NewMeetingRepository(f.conn)
}

// OutboxRepository creates an outbox repository sharing the connection, so
// events commit in the same transaction as the meetings that raised them.
func (f *RepositoryFactory) OutboxRepository() outbox.Repository {
	return outbox.NewSQLRepository(f.conn)
}

// UnitOfWork creates a unit of work over the connection.
func (f *RepositoryFactory) UnitOfWork() sharedApplication.UnitOfWork {
	return database.NewUnitOfWork(f.conn)
}
