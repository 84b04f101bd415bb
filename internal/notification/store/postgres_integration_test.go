//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"maintrack/internal/notification/models"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
	"maintrack/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	store *Postgres
	ctx   context.Context
}

func TestPostgresSuite(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := &PostgresSuite{store: NewPostgres(pg.DB), ctx: context.Background()}
	suite.Run(t, s)
}

func (s *PostgresSuite) newUserNotification(user id.UserID) models.Notification {
	return models.Notification{
		ID:         id.NotificationID(uuid.New()),
		TargetUser: &user,
		Type:       models.TypeStatusChanged,
		Title:      "Ticket ZG-2024-0042 is now DONE",
		Message:    "Produkcja: press repaired",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresSuite) newModuleNotification(foldedModule string) models.Notification {
	link := "/tickets/" + uuid.NewString()
	return models.Notification{
		ID:        id.NotificationID(uuid.New()),
		Module:    &foldedModule,
		Type:      models.TypeTicketCreated,
		Title:     "New FAILURE ticket ZG-2024-0043",
		Message:   "Produkcja: conveyor stopped",
		Link:      &link,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresSuite) TestCreateAndListForUser() {
	user := id.UserID(uuid.New())
	n := s.newUserNotification(user)
	s.Require().NoError(s.store.Create(s.ctx, n))

	listed, err := s.store.ListForUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(n.ID, listed[0].ID)
	s.Require().NotNil(listed[0].TargetUser)
	s.Equal(user, *listed[0].TargetUser)
	s.False(listed[0].Read)
}

func (s *PostgresSuite) TestCreateDuplicateIDReturnsConflict() {
	n := s.newUserNotification(id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, n))
	s.ErrorIs(s.store.Create(s.ctx, n), sentinel.ErrConflict)
}

func (s *PostgresSuite) TestListForModulesFiltersByFoldedKey() {
	tickets := s.newModuleNotification("TICKETS")
	s.Require().NoError(s.store.Create(s.ctx, tickets))
	s.Require().NoError(s.store.Create(s.ctx, s.newModuleNotification("CZESCI")))

	listed, err := s.store.ListForModules(s.ctx, []string{"TICKETS"})
	s.Require().NoError(err)
	for _, n := range listed {
		s.Require().NotNil(n.Module)
		s.Equal("TICKETS", *n.Module)
	}
	s.NotEmpty(listed)
}

func (s *PostgresSuite) TestMarkRead() {
	user := id.UserID(uuid.New())
	n := s.newUserNotification(user)
	s.Require().NoError(s.store.Create(s.ctx, n))

	s.Require().NoError(s.store.MarkRead(s.ctx, user, n.ID))

	listed, err := s.store.ListForUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.True(listed[0].Read)
}

func (s *PostgresSuite) TestMarkReadWrongUserReturnsNotFound() {
	n := s.newUserNotification(id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, n))
	s.ErrorIs(s.store.MarkRead(s.ctx, id.UserID(uuid.New()), n.ID), sentinel.ErrNotFound)
}
