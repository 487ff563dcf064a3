package grpcx

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/service"
	"github.com/cwrk-planet/liar-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "liar.v1.RoomQuery"

	MethodGetRoomState = "/" + ServiceName + "/GetRoomState"
	MethodWatchRoom    = "/" + ServiceName + "/WatchRoom"
)

// RoomQueryServer: только чтение: снимок комнаты и поток её событий.
// Сообщения: google.protobuf.Struct, поля как в JSON API.
type RoomQueryServer interface {
	GetRoomState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	WatchRoom(in *structpb.Struct, stream grpc.ServerStream) error
}

var RoomQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRoomState", Handler: getRoomStateHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchRoom", Handler: watchRoomHandler, ServerStreams: true},
	},
	Metadata: "liar/v1/room_query.proto",
}

func getRoomStateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomQueryServer).GetRoomState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetRoomState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomQueryServer).GetRoomState(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchRoomHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RoomQueryServer).WatchRoom(in, stream)
}

type StateReader interface {
	RoomState(ctx context.Context, code, viewerID string) (*service.Snapshot, error)
}

// Watcher: источник событий комнаты (redis pub/sub).
type Watcher interface {
	Subscribe(ctx context.Context, code string) (<-chan domain.Event, func())
}

type Server struct {
	state   StateReader
	watcher Watcher
}

// NewServer; watcher может быть nil: тогда WatchRoom недоступен.
func NewServer(state StateReader, watcher Watcher) *Server {
	return &Server{state: state, watcher: watcher}
}

func Register(grpcServer *grpc.Server, s *Server, hs *health.Server) {
	grpcServer.RegisterService(&RoomQueryServiceDesc, s)
	if hs != nil {
		healthpb.RegisterHealthServer(grpcServer, hs)
	}
}

// -------- helpers --------

func field(in *structpb.Struct, name string) string {
	v, ok := in.GetFields()[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

// toStruct переводит значение в Struct через его JSON-представление.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindPhase:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.KindAuthorization:
		return status.Error(codes.PermissionDenied, err.Error())
	case domain.KindRule:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------- methods --------

func (s *Server) GetRoomState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	code := field(in, "code")
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}
	snap, err := s.state.RoomState(ctx, code, field(in, "viewer"))
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := toStruct(snap)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// WatchRoom стримит публичные события комнаты до отмены клиентом.
func (s *Server) WatchRoom(in *structpb.Struct, stream grpc.ServerStream) error {
	if s.watcher == nil {
		return status.Error(codes.Unimplemented, "room events are not published")
	}
	code := field(in, "code")
	if code == "" {
		return status.Error(codes.InvalidArgument, "code is required")
	}
	ctx := stream.Context()
	if _, err := s.state.RoomState(ctx, code, ""); err != nil {
		return mapErr(err)
	}

	events, cancel := s.watcher.Subscribe(ctx, code)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := toStruct(ev)
			if err != nil {
				slog.Warn("grpc WatchRoom: encode", logger.Room(code), logger.Err(err))
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
			if ev.Type == domain.EventRoomDeleted || ev.Type == domain.EventRoomRecreated {
				return nil
			}
		}
	}
}

// NewHealth: health-сервис, SERVING пока check проходит.
func NewHealth(ctx context.Context, check func(context.Context) error, every time.Duration) *health.Server {
	hs := health.NewServer()
	if every <= 0 {
		every = 10 * time.Second
	}
	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if check != nil {
			if err := check(pctx); err != nil {
				slog.Warn("grpc health: check failed", logger.Err(err))
				st = healthpb.HealthCheckResponse_NOT_SERVING
			}
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
	}

	probe()
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				return
			case <-t.C:
				probe()
			}
		}
	}()
	return hs
}
