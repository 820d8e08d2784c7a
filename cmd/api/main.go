package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/kevicsalazar/appactions-kotlin/internal/api"
	"github.com/kevicsalazar/appactions-kotlin/internal/auth"
	"github.com/kevicsalazar/appactions-kotlin/internal/config"
	"github.com/kevicsalazar/appactions-kotlin/internal/consumer"
	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
	"github.com/kevicsalazar/appactions-kotlin/internal/impressions"
	persistence "github.com/kevicsalazar/appactions-kotlin/internal/persistence/postgres"
	"github.com/kevicsalazar/appactions-kotlin/internal/slice"
	httptransport "github.com/kevicsalazar/appactions-kotlin/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	service := domain.NewService(repo)

	loop := slice.NewRenderLoop()
	broadcaster := slice.NewBroadcaster()
	host := slice.NewHost(repo, loop, broadcaster, cfg.SliceFetchCount, nil)

	producer := impressions.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()
	registry := impressions.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	emitter := impressions.NewEmitter(producer, registry, cfg.ImpressionsTopic, nil)

	// Ingest activity events in-process so pinned slices re-render as soon
	// as fresh records land.
	recordHandler := consumer.NewRecordHandler(pool, broadcaster)

	var consumers sync.WaitGroup
	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		proc := consumer.NewProcessor(reader, recordHandler)

		consumers.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer consumers.Done()
			defer r.Close()

			log.Printf("consumer started (topic=%s, group=%s)", topic, cfg.ConsumerGroupID)
			if err := proc.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("consumer stopped with error (topic=%s): %v", topic, err)
			}
		}(topic, reader)
	}

	handler := api.NewHandler(ctx, service, host, emitter)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("slice-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	consumers.Wait()
	loop.Close()
}
