package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mapviewer/internal/app"
	"mapviewer/internal/camera"
	"mapviewer/internal/config"
	"mapviewer/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *slog.Logger
}

// NewRootCmd builds the mapviewer command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mapviewer",
		Short:         "Headless slippy map viewport",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./mapviewer.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "text or json")

	cmd.AddCommand(newTilesCmd(opts))
	cmd.AddCommand(newReplayCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}

	o.cfg = cfg
	o.log = logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func newTilesCmd(root *rootOptions) *cobra.Command {
	var (
		lat, lng, zoom, width, height float64
		provider                      string
	)

	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Print the tiles covering a viewport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			flags := cmd.Flags()
			if flags.Changed("lat") {
				cfg.Map.Center.Lat = lat
			}
			if flags.Changed("lng") {
				cfg.Map.Center.Lng = lng
			}
			if flags.Changed("zoom") {
				cfg.Map.Zoom = zoom
			}
			if flags.Changed("width") {
				cfg.Map.Width = width
			}
			if flags.Changed("height") {
				cfg.Map.Height = height
			}
			if flags.Changed("provider") {
				cfg.Tiles.Provider = provider
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTiles(cmd.OutOrStdout(), cfg, root.log)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "center latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "center longitude")
	cmd.Flags().Float64Var(&zoom, "zoom", 0, "zoom level")
	cmd.Flags().Float64Var(&width, "width", 0, "viewport width in pixels")
	cmd.Flags().Float64Var(&height, "height", 0, "viewport height in pixels")
	cmd.Flags().StringVar(&provider, "provider", "", "wikimedia, osm or carto")
	return cmd
}

func runTiles(w io.Writer, cfg *config.Config, log *slog.Logger) error {
	provider, err := cfg.Provider()
	if err != nil {
		return err
	}

	opts := cfg.CameraOptions()
	opts.Logger = log
	c := camera.NewCamera(opts, time.Now())
	defer c.Close()

	result := c.Tiles()
	b := c.Bounds()

	fmt.Fprintf(w, "center %.6f,%.6f zoom %.2f\n", c.State().Center.Lat, c.State().Center.Lng, c.State().Zoom)
	fmt.Fprintf(w, "bounds ne %.6f,%.6f sw %.6f,%.6f\n", b.NE.Lat, b.NE.Lng, b.SW.Lat, b.SW.Lng)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TILE\tLEFT\tTOP\tSIZE\tURL")
	for _, d := range result.Resolve(provider, cfg.Tiles.DPRs) {
		screen := result.Transform.ToScreen(d.Rect)
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%s\n", d.Index, screen.Left, screen.Top, screen.Width, d.URL)
	}
	return tw.Flush()
}

func newReplayCmd(root *rootOptions) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a scripted gesture sequence and print what the viewport reported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			defer f.Close()

			script, err := app.ParseScript(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			a, err := app.New(root.cfg, root.log, time.Now())
			if err != nil {
				return err
			}
			res := a.Run(script)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the effective configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	})
	return cmd
}
