package middleware_test

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
)

const (
	secret    = "mw-secret"
	loginPath = "/clinic.v1.ClinicService/Login"
	statsPath = "/clinic.v1.ClinicService/GetStatistics"
)

func echoPrincipal(ctx context.Context, _ any) (any, error) {
	p, _ := middleware.PrincipalFrom(ctx)
	return p, nil
}

func withToken(tok string) context.Context {
	md := metadata.New(map[string]string{"authorization": "Bearer " + tok})
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestAuthInterceptor(t *testing.T) {
	intercept := middleware.Auth(secret)
	tok, _ := auth.MakeToken("usr_1", model.RoleDoctor, secret)

	resp, err := intercept(withToken(tok), nil, &grpc.UnaryServerInfo{FullMethod: statsPath}, echoPrincipal)
	if err != nil {
		t.Fatalf("valid token: %v", err)
	}
	p := resp.(middleware.Principal)
	if p.UserID != "usr_1" || p.Role != model.RoleDoctor {
		t.Errorf("principal = %+v", p)
	}

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"no metadata", context.Background()},
		{"no token", metadata.NewIncomingContext(context.Background(), metadata.MD{})},
		{"bad token", withToken("garbage")},
		{"wrong secret", withToken(func() string { s, _ := auth.MakeToken("usr_1", model.RoleDoctor, "other"); return s }())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := intercept(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: statsPath}, echoPrincipal)
			if status.Code(err) != codes.Unauthenticated {
				t.Fatalf("expected Unauthenticated, got %v", err)
			}
		})
	}
}

func TestAuthSkipsOpenMethods(t *testing.T) {
	intercept := middleware.Auth(secret)
	resp, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: loginPath}, echoPrincipal)
	if err != nil {
		t.Fatalf("login should be open: %v", err)
	}
	if resp.(middleware.Principal).UserID != "" {
		t.Error("open method should carry no principal")
	}
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := middleware.NewRateLimiter(ctx, 0.001, 2, loginPath)
	intercept := middleware.RateLimit(rl)

	peerCtx := func(ip string) context.Context {
		return peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP(ip), Port: 1}})
	}
	ok := func(context.Context, any) (any, error) { return "ok", nil }
	login := &grpc.UnaryServerInfo{FullMethod: loginPath}

	for i := 0; i < 2; i++ {
		if _, err := intercept(peerCtx("10.0.0.1"), nil, login, ok); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if _, err := intercept(peerCtx("10.0.0.1"), nil, login, ok); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
	// other peers have their own bucket
	if _, err := intercept(peerCtx("10.0.0.2"), nil, login, ok); err != nil {
		t.Fatalf("second peer: %v", err)
	}
	// unlisted methods are never limited
	for i := 0; i < 5; i++ {
		if _, err := intercept(peerCtx("10.0.0.1"), nil, &grpc.UnaryServerInfo{FullMethod: statsPath}, ok); err != nil {
			t.Fatalf("unlimited method: %v", err)
		}
	}
}

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	intercept := middleware.RequestLog(zap.New(core))

	var seen string
	handler := func(ctx context.Context, _ any) (any, error) {
		seen = middleware.RequestID(ctx)
		return nil, status.Error(codes.NotFound, "nope")
	}
	md := metadata.New(map[string]string{"x-request-id": "req-123"})
	_, err := intercept(metadata.NewIncomingContext(context.Background(), md), nil, &grpc.UnaryServerInfo{FullMethod: statsPath}, handler)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("error should pass through, got %v", err)
	}
	if seen != "req-123" {
		t.Errorf("request id = %q", seen)
	}
	entries := logs.FilterField(zap.String("request_id", "req-123")).All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("level = %v", entries[0].Level)
	}

	_, _ = intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: statsPath},
		func(ctx context.Context, _ any) (any, error) { seen = middleware.RequestID(ctx); return nil, nil })
	if seen == "" || seen == "req-123" {
		t.Errorf("expected a fresh request id, got %q", seen)
	}
}
