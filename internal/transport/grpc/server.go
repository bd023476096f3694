package grpcx

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/pagination"
)

const (
	serviceName = "voxspace.chat.v1.ChatService"

	mdAuthorization = "authorization"
	mdRequestID     = "x-request-id"
)

type ListContactsRequest struct{}

type ListContactsResponse struct {
	Items []domain.Contact `json:"items"`
}

type RecentMessagesRequest struct {
	Room  string `json:"room"`
	Limit int    `json:"limit,omitempty"`
}

type RecentMessagesResponse struct {
	Items []domain.Message `json:"items"`
}

// ChatServiceServer is the server side of voxspace.chat.v1.ChatService.
type ChatServiceServer interface {
	ListContacts(ctx context.Context, in *ListContactsRequest) (*ListContactsResponse, error)
	RecentMessages(ctx context.Context, in *RecentMessagesRequest) (*RecentMessagesResponse, error)
}

var chatServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListContacts", Handler: listContactsHandler},
		{MethodName: "RecentMessages", Handler: recentMessagesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voxspace/chat/v1",
}

func listContactsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListContactsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).ListContacts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListContacts"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).ListContacts(ctx, req.(*ListContactsRequest))
	})
}

func recentMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RecentMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).RecentMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RecentMessages"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).RecentMessages(ctx, req.(*RecentMessagesRequest))
	})
}

type ChatSvc interface {
	Recent(ctx context.Context, room string, limit int) ([]domain.Message, error)
	Authorize(ctx context.Context, userID, room string) error
}

type ContactSvc interface {
	ContactsFor(ctx context.Context, userID string) ([]domain.Contact, error)
}

type TokenVerifier interface {
	UserID(token string) (string, error)
}

type Server struct {
	chatSvc    ChatSvc
	contactSvc ContactSvc
	verifier   TokenVerifier
}

func NewServer(chat ChatSvc, contacts ContactSvc, verifier TokenVerifier) *Server {
	return &Server{chatSvc: chat, contactSvc: contacts, verifier: verifier}
}

func Register(grpcServer *grpc.Server, s *Server) {
	grpcServer.RegisterService(&chatServiceDesc, s)
}

// -------- helpers --------

func (s *Server) userFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	auth := first(md.Get(mdAuthorization))
	if auth == "" {
		return "", status.Error(codes.Unauthenticated, "missing authorization")
	}
	if len(auth) <= 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization")
	}

	uid, err := s.verifier.UserID(strings.TrimSpace(auth[7:]))
	if err != nil {
		return "", status.Error(codes.Unauthenticated, "invalid token")
	}
	return uid, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidRoom),
		errors.Is(err, domain.ErrSelfRoom),
		errors.Is(err, domain.ErrInvalidMessage),
		errors.Is(err, pagination.ErrInvalidCursor):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------- methods --------

func (s *Server) ListContacts(ctx context.Context, _ *ListContactsRequest) (*ListContactsResponse, error) {
	uid, err := s.userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.contactSvc.ContactsFor(ctx, uid)
	if err != nil {
		return nil, mapErr(err)
	}
	if items == nil {
		items = []domain.Contact{}
	}
	return &ListContactsResponse{Items: items}, nil
}

func (s *Server) RecentMessages(ctx context.Context, in *RecentMessagesRequest) (*RecentMessagesResponse, error) {
	uid, err := s.userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.chatSvc.Authorize(ctx, uid, in.Room); err != nil {
		return nil, mapErr(err)
	}
	items, err := s.chatSvc.Recent(ctx, in.Room, in.Limit)
	if err != nil {
		return nil, mapErr(err)
	}
	if items == nil {
		items = []domain.Message{}
	}
	return &RecentMessagesResponse{Items: items}, nil
}
