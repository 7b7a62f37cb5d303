package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "clinic.v1.ClinicService"

// ClinicServer is the gRPC surface. Every message is a
// google.protobuf.Struct carrying the JSON shape of the request or result.
type ClinicServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDoctors(context.Context, *structpb.Struct) (*structpb.Struct, error)

	CreateAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAppointments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetAppointmentStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)

	ListNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnreadCount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkNotificationRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkAllNotificationsRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteNotification(context.Context, *structpb.Struct) (*structpb.Struct, error)

	GetStatistics(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpc func(ClinicServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call rpc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ClinicServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		next := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ClinicServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, next)
	}
}

// FullMethod returns the gRPC path of method, e.g. "/clinic.v1.ClinicService/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClinicServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary("Register", ClinicServer.Register)},
		{MethodName: "Login", Handler: unary("Login", ClinicServer.Login)},
		{MethodName: "ListDoctors", Handler: unary("ListDoctors", ClinicServer.ListDoctors)},
		{MethodName: "CreateAppointment", Handler: unary("CreateAppointment", ClinicServer.CreateAppointment)},
		{MethodName: "GetAppointment", Handler: unary("GetAppointment", ClinicServer.GetAppointment)},
		{MethodName: "ListAppointments", Handler: unary("ListAppointments", ClinicServer.ListAppointments)},
		{MethodName: "AvailableSlots", Handler: unary("AvailableSlots", ClinicServer.AvailableSlots)},
		{MethodName: "SetAppointmentStatus", Handler: unary("SetAppointmentStatus", ClinicServer.SetAppointmentStatus)},
		{MethodName: "DeleteAppointment", Handler: unary("DeleteAppointment", ClinicServer.DeleteAppointment)},
		{MethodName: "ListNotifications", Handler: unary("ListNotifications", ClinicServer.ListNotifications)},
		{MethodName: "UnreadCount", Handler: unary("UnreadCount", ClinicServer.UnreadCount)},
		{MethodName: "MarkNotificationRead", Handler: unary("MarkNotificationRead", ClinicServer.MarkNotificationRead)},
		{MethodName: "MarkAllNotificationsRead", Handler: unary("MarkAllNotificationsRead", ClinicServer.MarkAllNotificationsRead)},
		{MethodName: "DeleteNotification", Handler: unary("DeleteNotification", ClinicServer.DeleteNotification)},
		{MethodName: "GetStatistics", Handler: unary("GetStatistics", ClinicServer.GetStatistics)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinic/v1/clinic.proto",
}

func RegisterClinicServer(s grpc.ServiceRegistrar, srv ClinicServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls ClinicService methods over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
