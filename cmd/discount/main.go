// The discount binary runs the reference discount gRPC service, used for
// local development and integration testing of the pipeline.
package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"hotelbooking/internal/config"
	"hotelbooking/internal/discount/discountpb"
	"hotelbooking/internal/discountsvc"
	"hotelbooking/pkg/log"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	log.Init(log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	lis, err := net.Listen("tcp", cfg.Discount.Addr)
	if err != nil {
		log.WithError(err).Fatal("Failed to listen")
	}

	server := grpc.NewServer()
	discountpb.RegisterDiscountServiceServer(server, discountsvc.NewService(nil))

	go func() {
		log.WithField("addr", cfg.Discount.Addr).Info("Starting discount gRPC server")
		if err := server.Serve(lis); err != nil {
			log.WithError(err).Fatal("gRPC server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down discount service...")
	server.GracefulStop()
	log.Info("Discount service exited")
}
