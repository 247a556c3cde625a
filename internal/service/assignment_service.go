package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/sla"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

const unassignedLabel = "Unassigned"

// AssignmentService routes tickets to a user, a group or no one.
type AssignmentService struct {
	mutator ticketMutator
	groups  repository.GroupRepository
	audit   *AuditTrail
	events  eventPublisher
	logger  *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	GroupRepo  repository.GroupRepository
	Audit      *AuditTrail
	Dispatcher events.Dispatcher
	Clock      sla.Clock
	Logger     *zap.Logger
}

// AssignmentInput describes an assignment request.
type AssignmentInput struct {
	Type    domain.AssignmentType
	UserID  *int64
	GroupID *int64
	Note    string
}

// assignmentChange captures what an in-memory assignment did so it can be
// recorded once the ticket is persisted.
type assignmentChange struct {
	from         string
	to           string
	groupChanged bool
	fromGroup    *int64
	toGroup      int64
	note         string
	auto         bool
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		mutator: ticketMutator{tickets: deps.TicketRepo},
		groups:  deps.GroupRepo,
		audit:   deps.Audit,
		events:  eventPublisher{dispatcher: deps.Dispatcher, clock: clock, logger: logger},
		logger:  logger,
	}
}

// Assign applies input to the ticket and records the change.
func (s *AssignmentService) Assign(ctx context.Context, orgID, actorID, ticketID int64, input AssignmentInput) (*domain.Ticket, error) {
	var change assignmentChange
	ticket, err := s.mutator.mutate(ctx, orgID, ticketID, func(t *domain.Ticket) error {
		var err error
		change, err = s.apply(ctx, t, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, ticket, actorID, change); err != nil {
		return nil, err
	}
	s.logger.Info("ticket assigned",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("from", change.from),
		zap.String("to", change.to),
		zap.Int64("actor_id", actorID),
	)
	return ticket, nil
}

// apply validates input and mutates ticket in memory. Nothing is changed
// when an error is returned.
func (s *AssignmentService) apply(ctx context.Context, ticket *domain.Ticket, input AssignmentInput) (assignmentChange, error) {
	change := assignmentChange{from: assignmentLabel(ticket), note: input.Note}
	previousGroup := ticket.AssignedGroup

	switch input.Type {
	case domain.AssignmentUser:
		if input.UserID == nil || *input.UserID <= 0 {
			return assignmentChange{}, apperrors.NewValidationError("user_id is required for USER assignment", nil)
		}
		userID := *input.UserID
		ticket.AssignmentType = domain.AssignmentUser
		ticket.AssignedUserID = &userID
		ticket.AssignedGroup = nil
	case domain.AssignmentGroup:
		if input.GroupID == nil || *input.GroupID <= 0 {
			return assignmentChange{}, apperrors.NewValidationError("group_id is required for GROUP assignment", nil)
		}
		group, err := s.resolveGroup(ctx, ticket.OrganizationID, *input.GroupID)
		if err != nil {
			return assignmentChange{}, err
		}
		groupID := group.ID
		ticket.AssignmentType = domain.AssignmentGroup
		ticket.AssignedGroup = &groupID
		ticket.AssignedUserID = nil
		if previousGroup == nil || *previousGroup != groupID {
			change.groupChanged = true
			change.fromGroup = previousGroup
			change.toGroup = groupID
		}
	case domain.AssignmentNone:
		ticket.AssignmentType = domain.AssignmentNone
		ticket.AssignedUserID = nil
		ticket.AssignedGroup = nil
	default:
		return assignmentChange{}, apperrors.NewValidationError("invalid assignment type", map[string]any{"assignment_type": input.Type})
	}

	change.to = assignmentLabel(ticket)
	return change, nil
}

// autoAssign routes a new ticket to the lowest id active L1 group of its
// organization. It reports false when the organization has none.
func (s *AssignmentService) autoAssign(ctx context.Context, ticket *domain.Ticket) (assignmentChange, bool, error) {
	groups, err := s.groups.ListActiveByOrganizationAndLevel(ctx, ticket.OrganizationID, domain.GroupLevelL1)
	if err != nil {
		return assignmentChange{}, false, apperrors.NewInternalError(err)
	}
	if len(groups) == 0 {
		return assignmentChange{}, false, nil
	}
	groupID := groups[0].ID
	change := assignmentChange{
		from:         assignmentLabel(ticket),
		groupChanged: true,
		toGroup:      groupID,
		note:         "Auto-assigned to L1 group",
		auto:         true,
	}
	ticket.AssignmentType = domain.AssignmentGroup
	ticket.AssignedGroup = &groupID
	ticket.AssignedUserID = nil
	change.to = assignmentLabel(ticket)
	return change, true, nil
}

func (s *AssignmentService) record(ctx context.Context, ticket *domain.Ticket, actorID int64, change assignmentChange) error {
	if err := s.audit.RecordAssignment(ctx, ticket.ID, actorID, change.from, change.to, change.note); err != nil {
		return err
	}
	if change.groupChanged {
		if err := s.audit.RecordGroupChange(ctx, ticket.ID, change.fromGroup, change.toGroup, actorID, change.note); err != nil {
			return err
		}
	}
	s.events.publish(ctx, events.Event{
		Type:           events.EventTicketAssigned,
		TicketID:       ticket.ID,
		OrganizationID: ticket.OrganizationID,
		ActorID:        actorID,
		Payload: events.TicketAssignedPayload{
			AssignmentType: ticket.AssignmentType,
			AssignedUserID: ticket.AssignedUserID,
			AssignedGroup:  ticket.AssignedGroup,
			Auto:           change.auto,
		},
	})
	return nil
}

func (s *AssignmentService) resolveGroup(ctx context.Context, orgID, groupID int64) (*domain.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("group", map[string]any{"group_id": groupID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if group.OrganizationID != orgID {
		return nil, apperrors.NewForbidden("group belongs to another organization")
	}
	if !group.Active {
		return nil, apperrors.NewValidationError("group is inactive", map[string]any{"group_id": groupID})
	}
	return group, nil
}

func assignmentLabel(ticket *domain.Ticket) string {
	switch {
	case ticket.AssignmentType == domain.AssignmentUser && ticket.AssignedUserID != nil:
		return fmt.Sprintf("User:%d", *ticket.AssignedUserID)
	case ticket.AssignmentType == domain.AssignmentGroup && ticket.AssignedGroup != nil:
		return fmt.Sprintf("Group:%d", *ticket.AssignedGroup)
	default:
		return unassignedLabel
	}
}
