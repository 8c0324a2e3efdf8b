package activity

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
	"github.com/wangchlxt/Swarm-sub001/internal/store"
)

const defaultListLimit = 50

// Service is the activity service actor behavior.
type Service struct {
	store store.ActivityStore
	hub   fn.Option[actor.TellOnlyRef[HubRequest]]
}

// ServiceConfig holds configuration for the activity service.
type ServiceConfig struct {
	// Store is the activity store implementation.
	Store store.ActivityStore

	// Hub, if set, receives every stored record.
	Hub fn.Option[actor.TellOnlyRef[HubRequest]]
}

// NewService creates a new activity service with the given configuration.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store: cfg.Store,
		hub:   cfg.Hub,
	}
}

// Receive implements actor.ActorBehavior by dispatching to type-specific
// handlers.
func (s *Service) Receive(ctx context.Context,
	msg ActivityRequest) fn.Result[ActivityResponse] {

	switch m := msg.(type) {
	case RecordRequest:
		return fn.Ok[ActivityResponse](s.handleRecord(ctx, m))

	case ListRecentRequest:
		return fn.Ok[ActivityResponse](s.handleListRecent(ctx, m))

	case ListStreamRequest:
		return fn.Ok[ActivityResponse](s.handleListStream(ctx, m))

	default:
		return fn.Err[ActivityResponse](fmt.Errorf(
			"unknown message type: %T", msg,
		))
	}
}

// Record stores rec and forwards it to the hub.
func (s *Service) Record(ctx context.Context, rec Record) (int64, error) {
	row, err := toStore(rec)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateActivity(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("store activity: %w", err)
	}
	rec.ID = id

	log.DebugS(ctx, "Recorded activity", "id", id, "action",
		rec.Action, "target", rec.Target, "streams", len(rec.Streams))

	s.hub.WhenSome(func(hub actor.TellOnlyRef[HubRequest]) {
		hub.Tell(ctx, PublishMsg{Record: rec})
	})

	return id, nil
}

func (s *Service) handleRecord(ctx context.Context,
	req RecordRequest) RecordResponse {

	id, err := s.Record(ctx, req.Record)

	return RecordResponse{ID: id, Error: err}
}

func (s *Service) handleListRecent(ctx context.Context,
	req ListRecentRequest) ListResponse {

	rows, err := s.store.ListRecentActivities(ctx, limitOr(req.Limit))
	if err != nil {
		return ListResponse{Error: err}
	}

	records, err := convertActivities(rows)

	return ListResponse{Records: records, Error: err}
}

func (s *Service) handleListStream(ctx context.Context,
	req ListStreamRequest) ListResponse {

	rows, err := s.store.ListActivitiesByStream(
		ctx, req.Stream, limitOr(req.Limit),
	)
	if err != nil {
		return ListResponse{Error: err}
	}

	records, err := convertActivities(rows)

	return ListResponse{Records: records, Error: err}
}

func limitOr(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}

	return limit
}

// convertActivities converts store rows to records.
func convertActivities(rows []store.Activity) ([]Record, error) {
	records := make([]Record, len(rows))
	for i, row := range rows {
		r, err := fromStore(row)
		if err != nil {
			return nil, err
		}
		records[i] = r
	}

	return records, nil
}

// ActivityActorRef is the typed actor reference for the activity service.
type ActivityActorRef = actor.ActorRef[ActivityRequest, ActivityResponse]

// NewActivityActor creates a new activity actor with the given
// configuration.
func NewActivityActor(
	cfg ServiceConfig) *actor.Actor[ActivityRequest, ActivityResponse] {

	return actor.New(actor.Config[ActivityRequest, ActivityResponse]{
		ID:          "activity-service",
		Behavior:    NewService(cfg),
		MailboxSize: 100,
	})
}

// Ensure Service implements ActorBehavior.
var _ actor.ActorBehavior[ActivityRequest, ActivityResponse] = (*Service)(nil)
