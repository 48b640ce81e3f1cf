package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/expensesplit/internal/calculator"
	"github.com/mmynk/expensesplit/internal/metrics"
	"github.com/mmynk/expensesplit/internal/middleware"
	"github.com/mmynk/expensesplit/internal/models"
	"github.com/mmynk/expensesplit/internal/storage"
	"github.com/mmynk/expensesplit/pkg/api"
	"github.com/mmynk/expensesplit/pkg/api/apiconnect"
)

// Ensure GroupService implements the connect handler interface
var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService
type GroupService struct {
	store   storage.Store
	metrics *metrics.Metrics
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, m *metrics.Metrics) *GroupService {
	return &GroupService{store: store, metrics: m}
}

// CreateGroup creates a new group. The caller is always a member and is
// listed first unless already present.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	current, ok := middleware.CurrentParticipant(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, invalidArgument("group name required")
	}

	group := &models.Group{Name: name}
	if !containsParticipant(req.Msg.Members, current.ID) {
		group.Members = append(group.Members, current)
	}
	seen := make(map[string]bool, len(req.Msg.Members))
	for _, m := range req.Msg.Members {
		if m.ID == "" {
			return nil, invalidArgument("member id required")
		}
		if seen[m.ID] {
			return nil, invalidArgument("duplicate member %s", m.ID)
		}
		seen[m.ID] = true
		group.Members = append(group.Members, m)
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Group created", "group_id", group.ID, "members_count", len(group.Members))
	return connect.NewResponse(&api.CreateGroupResponse{Group: group}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: group}), nil
}

// ListGroups retrieves the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	groups, err := s.store.ListGroupsByMember(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Debug("ListGroups successful", "user_id", userID, "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: groups}), nil
}

// GetGroupBalances calculates balances across all expenses and settlements
// in a group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		slog.Error("GetGroupBalances failed - could not list expenses", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		slog.Error("GetGroupBalances failed - could not list settlements", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	records := make([]models.ExpenseRecord, len(expenses))
	for i, e := range expenses {
		records[i] = *e
	}
	payments := make([]models.Settlement, len(settlements))
	for i, st := range settlements {
		payments[i] = *st
	}

	memberBalances, debtEdges, err := calculator.CalculateGroupBalances(records, payments)
	if err != nil {
		slog.Error("GetGroupBalances failed - calculation error", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	balances := make([]api.MemberBalance, len(memberBalances))
	for i, bal := range memberBalances {
		balances[i] = api.MemberBalance{
			ParticipantID: bal.ParticipantID,
			TotalPaid:     bal.TotalPaid,
			TotalOwed:     bal.TotalOwed,
			NetBalance:    bal.NetBalance,
		}
	}
	debts := make([]api.Debt, len(debtEdges))
	for i, d := range debtEdges {
		debts[i] = api.Debt{
			FromParticipantID: d.From,
			ToParticipantID:   d.To,
			Amount:            d.Amount,
		}
	}

	slog.Info("GetGroupBalances successful",
		"group_id", group.ID,
		"expenses_count", len(records),
		"settlements_count", len(payments),
		"debts_count", len(debts),
	)
	return connect.NewResponse(&api.GetGroupBalancesResponse{
		Balances: balances,
		Debts:    debts,
	}), nil
}

// RecordSettlement records a payment between two members of a group.
func (s *GroupService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	msg := req.Msg
	group, err := s.memberGroup(ctx, msg.GroupID)
	if err != nil {
		return nil, err
	}

	switch {
	case msg.FromParticipantID == "" || msg.ToParticipantID == "":
		return nil, invalidArgument("from_participant_id and to_participant_id required")
	case msg.FromParticipantID == msg.ToParticipantID:
		return nil, invalidArgument("cannot settle with yourself")
	case !group.HasMember(msg.FromParticipantID) || !group.HasMember(msg.ToParticipantID):
		return nil, invalidArgument("both parties must be members of the group")
	case !msg.Amount.IsPositive():
		return nil, invalidArgument("amount must be positive")
	case !msg.Amount.Equal(msg.Amount.Truncate(calculator.CentPlaces)):
		return nil, invalidArgument("amount must have at most two decimal places")
	}

	settlement := &models.Settlement{
		GroupID:           group.ID,
		FromParticipantID: msg.FromParticipantID,
		ToParticipantID:   msg.ToParticipantID,
		Amount:            msg.Amount,
		CreatedBy:         middleware.GetUserID(ctx),
		Note:              strings.TrimSpace(msg.Note),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("RecordSettlement failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.metrics.SettlementRecorded()

	slog.Info("Settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", group.ID,
		"from", settlement.FromParticipantID,
		"to", settlement.ToParticipantID,
		"amount", settlement.Amount.StringFixed(calculator.CentPlaces),
	)
	return connect.NewResponse(&api.RecordSettlementResponse{Settlement: settlement}), nil
}

// ListSettlements lists the settlements of a group, newest first.
func (s *GroupService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		slog.Error("ListSettlements failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: settlements}), nil
}

// memberGroup loads groupID and checks the caller belongs to it.
func (s *GroupService) memberGroup(ctx context.Context, groupID string) (*models.Group, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	if groupID == "" {
		return nil, invalidArgument("group_id required")
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Warn("Group lookup failed", "group_id", groupID, "error", err)
		return nil, storageError(err)
	}
	if !group.HasMember(userID) {
		return nil, permissionDenied("you must be a member of this group")
	}
	return group, nil
}

func containsParticipant(participants []models.Participant, id string) bool {
	for _, p := range participants {
		if p.ID == id {
			return true
		}
	}
	return false
}
