package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/roomwatch-service/pkg/auth"
	"liyu1981.xyz/roomwatch-service/pkg/broker"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/db"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	rwGrpc "liyu1981.xyz/roomwatch-service/pkg/grpc"
	rwHttp "liyu1981.xyz/roomwatch-service/pkg/http"
	"liyu1981.xyz/roomwatch-service/pkg/ingest"
	"liyu1981.xyz/roomwatch-service/pkg/monitor"
	"liyu1981.xyz/roomwatch-service/pkg/push"
	"liyu1981.xyz/roomwatch-service/pkg/sensor"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, copy .env.example to .env first if in development")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := common.GetLogger()

	dbInstance, err := db.Open(db.UseDialector(cfg))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer dbInstance.Close()

	// Change feed. Watchers always read from one Feed; writes go to every
	// configured publisher.
	local := feed.NewBroker()
	defer local.Close()

	var changes feed.Feed = local
	var publishers feed.MultiPublisher

	if cfg.RedisURL != "" {
		client, err := feed.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()
		redisFeed := feed.NewRedisFeed(client)
		publishers = append(publishers, redisFeed)
		changes = redisFeed
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := feed.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)

		if cfg.RedisURL == "" {
			// every instance reads the whole topic into its own broker
			relay := feed.NewKafkaRelay(cfg.KafkaBrokers, cfg.KafkaTopic, "roomwatch-"+uuid.NewString(), local)
			defer relay.Close()
			go func() {
				if err := relay.Run(ctx); err != nil {
					logger.Error("Kafka relay stopped", zap.Error(err))
				}
			}()
		}
	}

	if cfg.RedisURL == "" && len(cfg.KafkaBrokers) == 0 {
		publishers = append(publishers, local)
	}

	// Push notifications and device ingest over MQTT.
	mqttURL := cfg.MQTTBrokerURL
	if cfg.MQTTEmbedded {
		embedded, err := broker.Start(cfg.MQTTListen)
		if err != nil {
			log.Fatal(err)
		}
		defer embedded.Close()
		mqttURL = embedded.URL()
	}

	dispatchers := push.Multi{push.LogDispatcher{}}
	if mqttURL != "" {
		pushClient, err := broker.Connect(mqttURL, cfg.MQTTClientID+"-push", nil)
		if err != nil {
			log.Fatal(err)
		}
		defer pushClient.Disconnect(250)
		dispatchers = append(dispatchers, push.NewMQTTDispatcher(pushClient))
	}

	var sensors sensor.Source
	switch cfg.SensorSource {
	case "wifi":
		sensors = sensor.NewWiFi()
	default:
		sensors = sensor.NewSimulated(uint64(time.Now().UnixNano()))
	}

	core := monitor.New(dbInstance, monitor.Options{
		Publisher:          publishers,
		Push:               dispatchers,
		Sensors:            sensors,
		SuppressDuplicates: cfg.SuppressDuplicateAlerts,
	})

	if mqttURL != "" {
		ingester := ingest.New(core.Reading)
		ingestClient, err := broker.Connect(mqttURL, cfg.MQTTClientID+"-ingest", ingester.OnConnect)
		if err != nil {
			log.Fatal(err)
		}
		defer ingestClient.Disconnect(250)
	}

	authService := auth.NewService(dbInstance, cfg.JWTSecret, cfg.SessionTTL)
	// one store for both transports
	limiterStore := monitor.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst)
	defaultLimiter := fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)

	if cfg.GrpcHostPort != "" {
		logger.Info("Starting gRPC server on port " + cfg.GrpcHostPort)
		go func() {
			rwGrpcServer := &rwGrpc.RoomWatchServer{
				Monitor:          core,
				Auth:             authService,
				RateLimiterStore: limiterStore,
				Changes:          changes,
			}
			s := rwGrpcServer.NewServer()
			logger.Info("gRPC server created with:", zap.String("default_limiter", defaultLimiter))

			listener, err := net.Listen("tcp", cfg.GrpcHostPort)
			if err != nil {
				log.Fatalf("failed to listen: %v", err)
			}

			go func() {
				<-ctx.Done()
				s.GracefulStop()
			}()

			logger.Info("start gRPC server on " + cfg.GrpcHostPort)
			if err := s.Serve(listener); err != nil {
				log.Fatalf("grpc server failed to serve: %v", err)
			}
		}()
	}

	rs := &rwHttp.RestfulServer{
		Server:           gin.Default(),
		Monitor:          core,
		Auth:             authService,
		RateLimiterStore: limiterStore,
		Changes:          changes,
	}
	rs.Setup()

	logger.Info("http server created with:", zap.String("default_limiter", defaultLimiter))

	logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
	if err := rs.Run(ctx, cfg.HttpHostPort); err != nil {
		log.Fatalf("http server failed to serve: %v", err)
	}
}
