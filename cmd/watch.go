package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/mask-sentry/internal/alert"
	"github.com/kozaktomas/mask-sentry/internal/config"
	"github.com/kozaktomas/mask-sentry/internal/constants"
	"github.com/kozaktomas/mask-sentry/internal/pipeline"
	"github.com/kozaktomas/mask-sentry/internal/recognizer"
	"github.com/kozaktomas/mask-sentry/internal/registration"
	"github.com/kozaktomas/mask-sentry/internal/registry"
	"github.com/kozaktomas/mask-sentry/internal/tracker"
	"github.com/kozaktomas/mask-sentry/internal/vision"
	"github.com/kozaktomas/mask-sentry/internal/web"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the camera and serve the API",
	Long: `Open the camera and the models, load the registered faces and run the
detection pipeline until interrupted. The HTTP API exposes the current
recognitions and the registration review queue.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("source", "", "Camera device index or stream URL (overrides CAMERA_SOURCE)")
	watchCmd.Flags().Int("port", 0, "Port to listen on (overrides HTTP_PORT)")
	watchCmd.Flags().Bool("no-web", false, "Do not start the HTTP API")
}

// closer is a sink that holds a connection.
type closer interface {
	Close() error
}

// openSinks connects the configured alert sinks. A sink that cannot connect
// is logged and left out; the log sink is always present.
func openSinks(cfg config.AlertsConfig) ([]alert.Sink, []closer) {
	sinks := []alert.Sink{alert.LogSink{}}
	var closers []closer

	if cfg.MQTTBroker != "" {
		s, err := alert.NewMQTTSink(alert.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		})
		if err != nil {
			log.WithFields(log.Fields{"broker": cfg.MQTTBroker, "error": err}).Warn("MQTT alerts disabled")
		} else {
			sinks = append(sinks, s)
			closers = append(closers, closerFunc(func() error { s.Close(); return nil }))
		}
	}

	if cfg.RedisAddress != "" {
		s := alert.NewRedisSink(alert.NewRedisPool(cfg.RedisAddress, cfg.RedisMaxIdle), cfg.RedisChannel)
		sinks = append(sinks, s)
		closers = append(closers, s)
	}

	return sinks, closers
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if src := mustGetString(cmd, "source"); src != "" {
		cfg.Camera.Source = src
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	facing, err := pipeline.ParseFacing(cfg.Camera.Facing)
	if err != nil {
		return err
	}

	// Models first: nothing else starts when one of them cannot be loaded.
	m, err := openModels(cfg.Models, true)
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	defer m.Close()

	store, err := registry.Open(registry.Options{Dir: cfg.Store.Dir, ExportDir: cfg.Store.ExportDir})
	if err != nil {
		return err
	}
	if _, err := store.Load(); err != nil {
		return fmt.Errorf("loading registered faces: %w", err)
	}

	contacts, err := alert.LoadContacts(cfg.Store.ContactsPath)
	if err != nil {
		return err
	}

	sinks, closers := openSinks(cfg.Alerts)
	dispatcher := alert.NewDispatcher(cfg.Alerts.QueueSize, contacts, sinks...)

	tracks := tracker.New()
	queue := registration.NewQueue(store, contacts, constants.MaxPendingRegistrations)

	controller, err := pipeline.New(pipeline.Options{
		Detector:   m.detector,
		Extractor:  &recognizer.Extractor{Embedder: m.embedder, Index: store},
		Classifier: m.classifier,
		Tracker:    tracks,
		Registrar:  queue,
		Notifier:   dispatcher,
	})
	if err != nil {
		return err
	}

	camera, err := vision.OpenCamera(cfg.Camera.Source, cfg.Camera.Rotation, facing)
	if err != nil {
		return err
	}
	defer camera.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *web.Server
	if !mustGetBool(cmd, "no-web") {
		server = web.NewServer(cfg.Web, web.Deps{
			Pipeline: controller,
			Tracks:   tracks,
			Queue:    queue,
			Store:    store,
			Alerts:   dispatcher,
			Contacts: contacts,
		})
		go func() {
			if err := server.Start(); err != nil {
				log.WithError(err).Error("Web server stopped")
				stop()
			}
		}()
	}

	log.WithFields(log.Fields{
		"source":     cfg.Camera.Source,
		"rotation":   cfg.Camera.Rotation,
		"facing":     facing,
		"registered": store.Len(),
	}).Info("Watching camera, press Ctrl+C to stop")

	streamErr := camera.Stream(ctx, func(f pipeline.Frame) {
		controller.Submit(ctx, f)
	})
	stop()

	log.Info("Shutting down")
	controller.Wait()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Error during shutdown")
		}
		cancel()
	}

	dispatcher.Close()
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("Failed to close alert sink")
		}
	}

	if streamErr != nil {
		return fmt.Errorf("camera: %w", streamErr)
	}
	return nil
}
