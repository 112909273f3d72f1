// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alan-mat/cognote/internal/function"
	"github.com/alan-mat/cognote/internal/tasks"
	"github.com/alan-mat/cognote/internal/transport"
	"github.com/alan-mat/cognote/internal/usage"
	"github.com/alan-mat/cognote/internal/vector"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "cognote"

type ServerConfig struct {
	ListenHost string
	ListenPort int
	GRPCPort   int

	ShutdownTimeout time.Duration
}

func DefaultConfig() ServerConfig {
	return ServerConfig{
		ListenPort:      8080,
		GRPCPort:        50051,
		ShutdownTimeout: 5 * time.Second,
	}
}

type FunctionHandler interface {
	Handle(ctx context.Context, req function.Request) (*function.Response, error)
}

type BatchDispatcher interface {
	EnqueueEmbedBatch(ctx context.Context, p *tasks.EmbedBatchPayload) (string, error)
}

// Deps are the collaborators behind the routes. A nil collaborator
// disables its routes with 503.
type Deps struct {
	Functions  FunctionHandler
	Similarity *vector.Engine
	Dispatcher BatchDispatcher
	Transport  transport.Transport
	Stats      *usage.StatsCache
}

type Server struct {
	config ServerConfig
	deps   Deps
	router *gin.Engine
	health *health.Server
}

func New(config ServerConfig, deps Deps) *Server {
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		config: config,
		deps:   deps,
		health: health.NewServer(),
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware())
	router.Use(SubjectMiddleware())

	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/v1")
	v1.POST("/functions/ai", s.handleFunction)
	v1.POST("/similarity/search", s.handleSearch)
	v1.POST("/similarity/similar", s.handleSimilar)
	v1.POST("/embeddings/batch", s.handleEnqueueBatch)
	v1.GET("/embeddings/batch/:id", s.handleBatchTrace)
	v1.GET("/usage/:subject", s.handleUsage)

	return router
}

// Serve runs the HTTP server and the gRPC health service until ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpAddr := fmt.Sprintf("%s:%d", s.config.ListenHost, s.config.ListenPort)
	grpcAddr := fmt.Sprintf("%s:%d", s.config.ListenHost, s.config.GRPCPort)

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		slog.Info("grpc health service starting", "listener", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc server failed: %w", err)
		}
	}()
	go func() {
		slog.Info("http server starting", "listener", httpAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errc:
		slog.Error("server failed", "err", err)
	}

	s.health.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		return fmt.Errorf("server shutdown failed: %w", serr)
	}

	slog.Info("server stopped")
	return err
}
