// Command sensor-router runs the IMU-to-camera routing core: it streams
// readings from the device, derives heading and direction events through the
// configured pipeline, and routes them over the message broker to the camera
// switching and storage subscribers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cinvymoe/ai-system-sub001/internal/broker"
	"github.com/cinvymoe/ai-system-sub001/internal/camera"
	"github.com/cinvymoe/ai-system-sub001/internal/config"
	"github.com/cinvymoe/ai-system-sub001/internal/handlers"
	"github.com/cinvymoe/ai-system-sub001/internal/layers"
	"github.com/cinvymoe/ai-system-sub001/internal/monitoring"
	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
	"github.com/cinvymoe/ai-system-sub001/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config file (defaults apply when empty)")
	devMode     = flag.Bool("dev", false, "Run in dev mode: replay fixtures instead of real hardware")
	portPath    = flag.String("port", "", "Serial port to use (overrides config)")
	dbPath      = flag.String("db", "", "SQLite database path (overrides config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("sensor-router %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *portPath != "" {
		cfg.Layers.Collection.Kind = layers.CollectionSerial
		cfg.Layers.Collection.Port = *portPath
	}
	if *devMode {
		cfg.Layers.Collection.Kind = layers.CollectionReplay
		if cfg.Layers.Collection.FixturesPath == "" {
			cfg.Layers.Collection.FixturesPath = "fixtures.txt"
		}
	}
	if *dbPath != "" {
		cfg.Layers.Storage.Kind = layers.StorageSQLite
		cfg.Layers.Storage.Path = *dbPath
	}

	set, err := layers.New(cfg.Layers)
	if err != nil {
		log.Fatalf("failed to construct layers: %v", err)
	}
	defer set.Close()
	log.Printf("layers ready: collection=%s processing=%v storage=%s",
		cfg.Layers.Collection.Kind, set.Processing.StageNames(), cfg.Layers.Storage.Kind)

	hub := broker.New()
	if err := hub.RegisterMessageType(pipeline.EventTypeAngle, handlers.AngleHandler()); err != nil {
		log.Fatalf("failed to register %s: %v", pipeline.EventTypeAngle, err)
	}
	if err := hub.RegisterMessageType(pipeline.EventTypeDirection, handlers.DirectionHandler()); err != nil {
		log.Fatalf("failed to register %s: %v", pipeline.EventTypeDirection, err)
	}

	var mapperSource camera.ConfigSource = emptyConfigSource{}
	if database := set.Database(); database != nil {
		if err := seedDefaults(database); err != nil {
			log.Fatalf("failed to seed camera configuration: %v", err)
		}
		mapperSource = database
	} else {
		log.Printf("storage has no database, camera mapping runs with empty configuration")
	}
	mapper := camera.NewMapper(mapperSource)
	switcher := handlers.NewSwitcher(mapper, logController{})

	deriver, err := handlers.NewDirectionDeriver(hub, cfg.StationaryThreshold())
	if err != nil {
		log.Fatalf("failed to build direction deriver: %v", err)
	}

	// subscription order is delivery order: derive the direction first, then
	// switch cameras, then persist
	mustSubscribe(hub, pipeline.EventTypeAngle, deriver.HandleAngle)
	mustSubscribe(hub, pipeline.EventTypeAngle, switcher.HandleAngle)
	mustSubscribe(hub, pipeline.EventTypeAngle, handlers.StorageSubscriber(set.Storage))
	mustSubscribe(hub, pipeline.EventTypeDirection, switcher.HandleDirection)
	mustSubscribe(hub, pipeline.EventTypeDirection, handlers.StorageSubscriber(set.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the source never retries internally; retry here with backoff until the
	// device appears or shutdown is requested
	connect := backoff.NewExponentialBackOff()
	connect.MaxInterval = 5 * time.Second
	if err := backoff.Retry(func() error {
		if err := set.Collection.Connect(); err != nil {
			monitoring.Logf("connect failed, retrying: %v", err)
			return err
		}
		return nil
	}, backoff.WithContext(connect, ctx)); err != nil {
		log.Fatalf("failed to connect to device: %v", err)
	}

	readings, err := set.Collection.Stream(ctx)
	if err != nil {
		log.Fatalf("failed to start stream: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for reading := range readings {
			event, err := set.Processing.Process(reading)
			if err != nil {
				monitoring.Logf("pipeline dropped reading: %v", err)
				continue
			}
			if event == nil {
				continue
			}
			result := hub.Publish(event.Type, event.Payload)
			if !result.Success {
				monitoring.Logf("publish %s rejected: %v", event.Type, result.Errors)
				continue
			}
			for _, err := range result.Errors {
				monitoring.Logf("subscriber failure on %s: %v", event.Type, err)
			}
		}
		log.Print("reading stream ended")
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}

func mustSubscribe(hub *broker.Broker, name string, callback broker.Callback) {
	if _, err := hub.Subscribe(name, callback); err != nil {
		log.Fatalf("failed to subscribe to %s: %v", name, err)
	}
}

// logController stands in for the RTSP camera controller, which lives
// outside this repository. It records the resolved set in the log.
type logController struct{}

func (logController) SetActiveCameras(ids []string) error {
	log.Printf("active cameras: %v", ids)
	return nil
}

// emptyConfigSource backs the mapper when storage runs without a database.
type emptyConfigSource struct{}

func (emptyConfigSource) ListEnabledAngleRanges() ([]camera.AngleRange, error) { return nil, nil }

func (emptyConfigSource) ListEnabledCameras() ([]camera.Camera, error) { return nil, nil }
