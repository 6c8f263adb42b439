package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"soma_eq/internal/config"
	"soma_eq/internal/source"
)

// app holds what every command needs once flags and config are parsed.
var app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	stations []Station
}

var (
	v          = viper.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "soma_eq",
	Short: "Terminal equalizer for a microphone or an internet radio stream",
	Long: `soma_eq prints a 10 band ASCII equalizer, redrawn for every buffer of
audio taken from the default microphone or from an MP3 stream such as the
SomaFM stations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(v, cmd.Flags()); err != nil {
			return errors.Wrap(err, "failed to bind flags")
		}
		return initApp()
	},
}

var micCmd = &cobra.Command{
	Use:   "mic",
	Short: "Visualize the default input device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vcfg := app.cfg.Visualizer()
		mic := source.NewMic(source.MicConfig{
			SampleRate: vcfg.SampleRate,
			BufferSize: vcfg.BufferSize,
			Logger:     app.logger,
		})

		fmt.Fprintln(os.Stderr, "Starting audio stream...")
		return visualize(cmd.Context(), os.Stdout, mic, vcfg, false, app.logger)
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream [station|url]",
	Short: "Visualize a station or an MP3 stream URL",
	Long: `Visualize a station, given by shortcut or name, or any MP3 stream URL.
Without an argument the station is picked interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var station Station
		var err error
		if len(args) == 1 {
			station, err = resolveStation(app.stations, args[0])
		} else {
			station, err = pickStation(bufio.NewReader(os.Stdin), os.Stdout, app.stations)
		}
		if err != nil {
			return err
		}

		return playStation(cmd.Context(), station)
	},
}

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List the available stations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printStations(os.Stdout, app.stations)
		return nil
	},
}

func init() {
	config.SetDefaults(v)
	config.BindEnv(v)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	flags.Int("sample-rate", v.GetInt("sample_rate"), "microphone sample rate in Hz")
	flags.IntP("buffer-size", "b", v.GetInt("buffer_size"), "samples per frame")
	flags.IntP("max-width", "w", v.GetInt("max_width"), "length of a full-scale bar")
	flags.String("fill", v.GetString("fill"), "bar character")
	flags.String("log-level", v.GetString("log_level"), "log level (debug, info, warn, error)")
	flags.String("stations-file", "", "YAML station list replacing the built-in one")

	streamCmd.Flags().BoolP("play", "p", false, "play the stream while visualizing it")

	rootCmd.AddCommand(micCmd, streamCmd, stationsCmd)
}

// bindFlags binds every flag of the running command to the viper key of the
// same name, with dashes turned into underscores.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var lastErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" {
			return
		}
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

func initApp() error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrap(err, "failed to read config file")
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	level, _ := cfg.Level()
	app.cfg = cfg
	app.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}).Level(level).With().Timestamp().Logger()

	if configFile != "" {
		app.logger.Debug().Str("file", v.ConfigFileUsed()).Msg("using config file")
	}

	app.stations, err = loadStations(cfg.StationsFile)
	return err
}

func playStation(ctx context.Context, station Station) error {
	keepHeader := false
	if station.SongsURL != "" {
		songs, err := fetchTracks(ctx, &http.Client{Timeout: 10 * time.Second}, station.SongsURL)
		if err != nil {
			app.logger.Warn().Err(err).Str("station", station.Name).Msg("no track data")
		} else {
			printTracks(os.Stdout, station.Name, songs)
			keepHeader = len(songs) > 0
		}
	}

	vcfg := app.cfg.Visualizer()
	stream, err := source.OpenStream(ctx, station.URL, source.StreamConfig{
		BufferSize: vcfg.BufferSize,
		Play:       app.cfg.Play,
		Logger:     app.logger,
	})
	if err != nil {
		return err
	}

	return visualize(ctx, os.Stdout, stream, vcfg, keepHeader, app.logger)
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
