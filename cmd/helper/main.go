package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleet-dispatch/internal/config"
	"fleet-dispatch/internal/middleware"

	"github.com/golang-jwt/jwt"
)

// Drives a booking through the dispatch service while tailing /ws/events.
func main() {
	appCfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := &Logger{}

	cfg := Config{}
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:"+appCfg.Srv.DispatchServicePort, "dispatch service base URL")
	flag.StringVar(&cfg.DriverID, "driver_id", "driver-sim-1", "driver to assign")
	flag.StringVar(&cfg.ServiceType, "service_type", "cargo", "booking service type")
	flag.Float64Var(&cfg.Price, "price", 250, "booking price")
	flag.BoolVar(&cfg.UseBroker, "broker", false, "report driver status over RabbitMQ instead of HTTP")
	flag.BoolVar(&cfg.Cancel, "cancel", false, "cancel the booking after the dispatch is created")
	flag.Parse()

	cfg.Exchange = appCfg.RabbitMq.Exchange
	cfg.AmqpURL = fmt.Sprintf("amqp://%v:%v@%v:%v/%v",
		appCfg.RabbitMq.User, appCfg.RabbitMq.Password, appCfg.RabbitMq.Host, appCfg.RabbitMq.Port, appCfg.RabbitMq.VHost)

	cfg.Token, err = mintToken(appCfg.App.JwtSecret)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws := NewWebSocketClient(ctx, logger)
	if err := ws.Connect(cfg.BaseURL, cfg.Token); err != nil {
		logger.Warn("event stream unavailable: %v", err)
	} else {
		defer ws.Close()
		go func() {
			err := ws.ReadEvents(func(e StatusChanged) {
				logger.WebSocket("%s %s: %s -> %s (v%d, %s)", e.EntityType, e.EntityID, e.FromStatus, e.ToStatus, e.Version, e.Cause)
			})
			if err != nil {
				logger.Error("event stream closed: %v", err)
			}
		}()
	}

	sim := NewSimulator(ctx, cfg, logger)
	if cfg.UseBroker {
		closeBroker, err := sim.ConnectBroker()
		if err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		defer closeBroker()
	}

	if err := sim.Run(); err != nil {
		logger.Error("simulation failed: %v", err)
		os.Exit(1)
	}
}

func mintToken(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET is empty")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "dispatcher-sim",
		"role":    middleware.RoleDispatcher,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString([]byte(secret))
}
