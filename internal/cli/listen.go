package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chabad360/oscbind/bind"
	"github.com/chabad360/oscbind/internal/logging"
	"github.com/chabad360/oscbind/mapping"
	"github.com/chabad360/oscbind/scene"
)

const statusEvery = 250 * time.Millisecond

func init() {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive OSC and drive a scene",
		Long: "Load a scene document, start the OSC listener and apply received values to the\n" +
			"stored mappings until interrupted. SIGHUP reloads the mappings from the database.",
		Args: cobra.NoArgs,
		RunE: runListen,
	}

	def := bind.DefaultConfig()
	cmd.Flags().StringP("scene", "s", "", "Scene document (JSON)")
	cmd.Flags().String("host", "", "Bind host (default: saved setting)")
	cmd.Flags().IntP("port", "p", 0, "Bind port (default: saved setting)")
	cmd.Flags().Bool("hold-last", def.HoldLast, "Reapply the last received value when nothing new arrived")
	cmd.Flags().Duration("interval", def.Interval, "Apply loop interval")
	cmd.Flags().Int("rcvbuf", 0, "Socket receive buffer in bytes (0: OS default)")
	cmd.Flags().Float64("fps", 0, "Playback rate (default: the scene's, else 24)")
	cmd.Flags().Bool("record", false, "Record keyframes from the start")
	cmd.Flags().Bool("watch", false, "Print the last received value whenever it changes")
	cmd.MarkFlagRequired("scene")

	RootCmd.AddCommand(cmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	scenePath, _ := cmd.Flags().GetString("scene")
	record, _ := cmd.Flags().GetBool("record")
	watch, _ := cmd.Flags().GetBool("watch")
	fps, _ := cmd.Flags().GetFloat64("fps")
	log := logging.Get(logging.APP)

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cfg, err := listenConfig(cmd, s)
	if err != nil {
		return err
	}

	src := mapping.NewSource(s)
	if err := src.Refresh(cmd.Context()); err != nil {
		return errors.Wrap(err, "load mappings")
	}
	if len(src.Mappings()) == 0 {
		log.Warn("no mappings configured, add some with `oscbind map add`")
	}

	sc, err := scene.LoadFile(scenePath, scene.Options{FPS: fps, Logger: logging.Get(logging.SCENE)})
	if err != nil {
		return err
	}

	sys, err := bind.New(cfg, bind.Host{
		Graph:     sc,
		Animator:  sc,
		Playback:  sc,
		Display:   sc,
		Scheduler: sc,
		Mappings:  src,
	})
	if err != nil {
		return err
	}

	if err := sys.Start(); err != nil {
		return err
	}
	defer sys.Stop()

	if record {
		if err := sys.SetRecording(true); err != nil {
			return err
		}
	}
	if watch {
		sc.Register(statusEvery, statusPrinter(cmd, sc))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := src.Refresh(ctx); err != nil {
					log.Error("failed to reload mappings", "err", err)
					continue
				}
				log.Info("reloaded mappings", "count", len(src.Mappings()))
			}
		}
	}()

	log.Info("listening", "addr", sys.Addr(), "scene", scenePath, "mappings", len(src.Mappings()), "recording", record)
	if err := sc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutting down")
	return nil
}

// listenConfig merges the saved settings with the command line.
func listenConfig(cmd *cobra.Command, s *mapping.SQLiteStore) (bind.Config, error) {
	st, err := s.Settings(cmd.Context())
	if err != nil {
		return bind.Config{}, err
	}

	cfg := bind.DefaultConfig()
	cfg.Host, cfg.Port = st.Host, st.Port
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	cfg.HoldLast, _ = cmd.Flags().GetBool("hold-last")
	cfg.Interval, _ = cmd.Flags().GetDuration("interval")
	cfg.ReadBuffer, _ = cmd.Flags().GetInt("rcvbuf")
	cfg.Middleware = logging.Intercept
	cfg.Logger = logging.Get(logging.APPLY)
	cfg.ListenerLogger = logging.Get(logging.OSC_IN)

	return cfg, cfg.Validate()
}

// statusPrinter returns a scene timer that prints the status line when it changes.
func statusPrinter(cmd *cobra.Command, sc *scene.Scene) func() time.Duration {
	last := ""
	return func() time.Duration {
		if st := sc.Status(); st != last {
			last = st
			fmt.Fprintf(cmd.OutOrStdout(), "frame %d: %s\n", sc.Frame(), st)
		}
		return statusEvery
	}
}
